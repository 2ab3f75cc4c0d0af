// File: internal/grabber/login.go
package grabber

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/elective-grabber/internal/browser"
	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/fault"
	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

// LoginState tracks progress through the single sign-on form.
type LoginState int

const (
	AwaitingUsername LoginState = iota
	AwaitingPassword
	LoginDone
)

func (s LoginState) String() string {
	switch s {
	case AwaitingUsername:
		return "awaiting_username"
	case AwaitingPassword:
		return "awaiting_password"
	case LoginDone:
		return "done"
	default:
		return fmt.Sprintf("LoginState(%d)", int(s))
	}
}

// Login submits the credentials to the two-step sign-on form.
type Login struct {
	page   browser.Facade
	site   config.SiteConfig
	clock  retry.Clock
	logger *zap.Logger
}

func NewLogin(page browser.Facade, site config.SiteConfig, clock retry.Clock, logger *zap.Logger) *Login {
	return &Login{
		page:   page,
		site:   site,
		clock:  clock,
		logger: logger.Named("login"),
	}
}

type loginStep struct {
	from     LoginState
	field    string
	selector string
	value    string
}

// Run walks the form and returns the state it reached. An automation fault at
// any step aborts the procedure: it is logged and Run returns the state of the
// failed step with a nil error. Whether the site accepted the credentials is
// not checked here; a rejected login shows up as a shortlist that never loads.
func (l *Login) Run(ctx context.Context) (LoginState, error) {
	steps := []loginStep{
		{from: AwaitingUsername, field: "username", selector: l.site.UsernameSelector, value: l.site.Username},
		{from: AwaitingPassword, field: "password", selector: l.site.PasswordSelector, value: l.site.Password},
	}

	for _, step := range steps {
		if err := l.submit(ctx, step); err != nil {
			if !fault.Is(err, fault.KindAutomation) {
				return step.from, err
			}
			l.logger.Error("Could not login.", zap.Stringer("state", step.from), zap.Error(err))
			return step.from, nil
		}
	}

	l.logger.Debug("Login successful.")
	return LoginDone, nil
}

func (l *Login) submit(ctx context.Context, step loginStep) error {
	var field browser.Element
	found, err := retry.WaitUntil(ctx, l.clock, elementWait, func(ctx context.Context) (bool, error) {
		els, err := l.page.FindAll(ctx, step.selector)
		if err != nil || len(els) == 0 {
			return false, err
		}
		field = els[0]
		return true, nil
	}, nil)
	if err != nil {
		return err
	}
	if !found {
		return fault.Automation("find "+step.field+" field",
			fmt.Errorf("no element matched %q within %v", step.selector, elementWait.Timeout))
	}

	if field, err = l.page.WaitClickable(ctx, field, elementWait); err != nil {
		return err
	}
	if err := l.page.Type(ctx, field, step.value); err != nil {
		return err
	}
	return l.page.SendKey(ctx, browser.KeyEnter)
}
