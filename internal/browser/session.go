// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/fault"
	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

// Session is a single browser tab driven over the DevTools protocol. It
// implements Facade.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	logger      *zap.Logger
	timeout     time.Duration

	closeOnce sync.Once
	closeErr  error
}

var _ Facade = (*Session)(nil)

// NewSession starts (local mode) or attaches to (remote mode) a browser and
// opens one tab. The session lives until Close is called or ctx is cancelled.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	logger = logger.Named("browser")

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	switch cfg.Mode {
	case config.BrowserModeLocal:
		logger.Info("Launching local browser.", zap.String("path", cfg.LocalPath), zap.Bool("headless", cfg.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execAllocatorOptions(cfg)...)
	case config.BrowserModeRemote:
		logger.Info("Attaching to remote browser.", zap.String("url", cfg.RemoteURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	default:
		return nil, fmt.Errorf("unknown browser mode %q", cfg.Mode)
	}

	sugar := logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)

	// An empty Run starts the browser and attaches to the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fault.Automation("start browser", err)
	}

	timeout := cfg.ActionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Session{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		logger:      logger,
		timeout:     timeout,
	}, nil
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fault.Automation(op, err)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, "navigate", s.timeout, chromedp.Navigate(url))
}

func (s *Session) FindAll(ctx context.Context, selector string) ([]Element, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, "find "+selector, s.timeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, NewElement(n))
	}
	return out, nil
}

// Visible treats a node without a box model (display:none, detached) as hidden.
func (s *Session) Visible(ctx context.Context, el Element) (bool, error) {
	id := el.NodeID()
	var visible bool
	err := s.run(ctx, "check visible", s.timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		box, err := dom.GetBoxModel().WithNodeID(id).Do(ctx)
		if err != nil {
			return nil
		}
		visible = box.Width > 0 && box.Height > 0
		return nil
	}))
	return visible, err
}

func (s *Session) WaitVisible(ctx context.Context, el Element, w retry.WaitConfig) (Element, error) {
	err := s.run(ctx, "wait visible", w.Timeout,
		chromedp.WaitVisible(el.ids(), chromedp.ByNodeID, chromedp.RetryInterval(w.Interval)))
	return el, err
}

func (s *Session) WaitClickable(ctx context.Context, el Element, w retry.WaitConfig) (Element, error) {
	err := s.run(ctx, "wait clickable", w.Timeout,
		chromedp.WaitVisible(el.ids(), chromedp.ByNodeID, chromedp.RetryInterval(w.Interval)),
		chromedp.WaitEnabled(el.ids(), chromedp.ByNodeID, chromedp.RetryInterval(w.Interval)))
	return el, err
}

func (s *Session) MoveTo(ctx context.Context, el Element) error {
	id := el.NodeID()
	return s.run(ctx, "move to", s.timeout,
		chromedp.ScrollIntoView(el.ids(), chromedp.ByNodeID),
		chromedp.ActionFunc(func(ctx context.Context) error {
			box, err := dom.GetBoxModel().WithNodeID(id).Do(ctx)
			if err != nil {
				return err
			}
			x, y, err := quadCenter(box.Content)
			if err != nil {
				return err
			}
			return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
		}))
}

func (s *Session) Click(ctx context.Context, el Element) error {
	return s.run(ctx, "click", s.timeout, chromedp.Click(el.ids(), chromedp.ByNodeID))
}

func (s *Session) Attribute(ctx context.Context, el Element, name string) (string, error) {
	var (
		value string
		ok    bool
	)
	err := s.run(ctx, "read attribute "+name, s.timeout,
		chromedp.AttributeValue(el.ids(), name, &value, &ok, chromedp.ByNodeID))
	if err != nil || !ok {
		return "", err
	}
	return value, nil
}

func (s *Session) Type(ctx context.Context, el Element, text string) error {
	return s.run(ctx, "type", s.timeout, chromedp.SendKeys(el.ids(), text, chromedp.ByNodeID))
}

func (s *Session) SendKey(ctx context.Context, key string) error {
	return s.run(ctx, "send key", s.timeout, chromedp.KeyEvent(key))
}

func (s *Session) Refresh(ctx context.Context) error {
	return s.run(ctx, "refresh", s.timeout, chromedp.Reload())
}

// Maximize sets the window containing the tab to the maximized state.
func (s *Session) Maximize(ctx context.Context) error {
	return s.run(ctx, "maximize", s.timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		return cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{
			WindowState: cdpbrowser.WindowStateMaximized,
		}).Do(ctx)
	}))
}

// Close shuts the tab and, in local mode, the browser process. It is safe to
// call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.logger.Debug("Closing browser session.")
		if err := chromedp.Cancel(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fault.Automation("close", err)
		}
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

// quadCenter returns the centre of a DOM quad (four x,y pairs).
func quadCenter(q dom.Quad) (float64, float64, error) {
	if len(q) != 8 {
		return 0, 0, fmt.Errorf("malformed quad with %d points", len(q))
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, nil
}
