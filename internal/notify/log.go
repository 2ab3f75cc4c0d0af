// File: internal/notify/log.go
package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogChannel records events in the log only. It is used when mail delivery is
// disabled, for dry runs against the live site.
type LogChannel struct {
	logger *zap.Logger
}

var _ Channel = (*LogChannel)(nil)

func NewLogChannel(logger *zap.Logger) *LogChannel {
	return &LogChannel{logger: logger.Named("notify")}
}

func (c *LogChannel) Send(_ context.Context, ev Event) error {
	c.logger.Info(ev.Subject, zap.String("kind", string(ev.Kind)), zap.String("body", ev.Body))
	return nil
}
