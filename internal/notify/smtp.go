// File: internal/notify/smtp.go
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/fault"
)

// SMTPChannel sends events as plain-text mail over implicit TLS.
type SMTPChannel struct {
	cfg     config.NotifierConfig
	logger  *zap.Logger
	limiter *rate.Limiter
	// deliver hands a composed message to the transport.
	deliver func(ctx context.Context, msg *mail.Msg) error
}

var _ Channel = (*SMTPChannel)(nil)

// NewSMTPChannel creates a channel from the notifier configuration.
func NewSMTPChannel(cfg config.NotifierConfig, logger *zap.Logger) (*SMTPChannel, error) {
	client, err := mail.NewClient(cfg.SMTPHost,
		mail.WithPort(cfg.SMTPPort),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SenderEmail),
		mail.WithPassword(cfg.SenderPassword),
		mail.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	c := newSMTPChannel(cfg, logger)
	c.deliver = func(ctx context.Context, msg *mail.Msg) error {
		return client.DialAndSendWithContext(ctx, msg)
	}
	return c, nil
}

func newSMTPChannel(cfg config.NotifierConfig, logger *zap.Logger) *SMTPChannel {
	perSecond := rate.Limit(cfg.RateLimit / 60)
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &SMTPChannel{
		cfg:     cfg,
		logger:  logger.Named("smtp"),
		limiter: rate.NewLimiter(perSecond, burst),
	}
}

// Send composes and delivers ev. Sends are paced by the configured rate limit;
// pacing waits rather than dropping messages.
func (c *SMTPChannel) Send(ctx context.Context, ev Event) error {
	msg, err := c.compose(ev)
	if err != nil {
		return fault.Delivery("compose", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fault.Delivery("rate limit", err)
	}

	start := time.Now()
	if err := c.deliver(ctx, msg); err != nil {
		return fault.Delivery("smtp send", err)
	}
	c.logger.Debug("Notification delivered.",
		zap.String("kind", string(ev.Kind)),
		zap.String("subject", ev.Subject),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (c *SMTPChannel) compose(ev Event) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(c.cfg.SenderEmail); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(c.cfg.SendTo); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(ev.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, ev.Body+".")
	return msg, nil
}
