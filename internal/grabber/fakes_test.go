// File: internal/grabber/fakes_test.go
package grabber

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/elective-grabber/internal/browser"
	"github.com/xkilldash9x/elective-grabber/internal/notify"
	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

func element(id int64) browser.Element {
	return browser.NewElement(&cdp.Node{NodeID: cdp.NodeID(id), LocalName: "button"})
}

// fakePage is a scripted browser.Facade. Every call is recorded; hooks left
// nil succeed. Once ctx is done every call fails with ctx.Err().
type fakePage struct {
	mu    sync.Mutex
	calls []string

	findAll       func(selector string) ([]browser.Element, error)
	visible       func(el browser.Element) (bool, error)
	waitVisible   func(el browser.Element) error
	waitClickable func(el browser.Element) error
	moveTo        func(el browser.Element) error
	click         func(el browser.Element) error
	attribute     func(el browser.Element, name string) (string, error)
	typeText      func(el browser.Element, text string) error
	sendKey       func(key string) error
	navigate      func(url string) error
	refresh       func() error
	maximize      func() error
	closeErr      error
}

var _ browser.Facade = (*fakePage)(nil)

func (f *fakePage) record(ctx context.Context, format string, args ...interface{}) error {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.mu.Unlock()
	return ctx.Err()
}

// Calls returns the recorded calls.
func (f *fakePage) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns the number of calls whose description starts with prefix.
func (f *fakePage) Count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	if err := f.record(ctx, "navigate:%s", url); err != nil {
		return err
	}
	if f.navigate != nil {
		return f.navigate(url)
	}
	return nil
}

func (f *fakePage) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := f.record(ctx, "findAll:%s", selector); err != nil {
		return nil, err
	}
	if f.findAll != nil {
		return f.findAll(selector)
	}
	return nil, nil
}

func (f *fakePage) Visible(ctx context.Context, el browser.Element) (bool, error) {
	if err := f.record(ctx, "visible:%d", el.NodeID()); err != nil {
		return false, err
	}
	if f.visible != nil {
		return f.visible(el)
	}
	return true, nil
}

func (f *fakePage) WaitVisible(ctx context.Context, el browser.Element, _ retry.WaitConfig) (browser.Element, error) {
	if err := f.record(ctx, "waitVisible:%d", el.NodeID()); err != nil {
		return el, err
	}
	if f.waitVisible != nil {
		return el, f.waitVisible(el)
	}
	return el, nil
}

func (f *fakePage) WaitClickable(ctx context.Context, el browser.Element, _ retry.WaitConfig) (browser.Element, error) {
	if err := f.record(ctx, "waitClickable:%d", el.NodeID()); err != nil {
		return el, err
	}
	if f.waitClickable != nil {
		return el, f.waitClickable(el)
	}
	return el, nil
}

func (f *fakePage) MoveTo(ctx context.Context, el browser.Element) error {
	if err := f.record(ctx, "moveTo:%d", el.NodeID()); err != nil {
		return err
	}
	if f.moveTo != nil {
		return f.moveTo(el)
	}
	return nil
}

func (f *fakePage) Click(ctx context.Context, el browser.Element) error {
	if err := f.record(ctx, "click:%d", el.NodeID()); err != nil {
		return err
	}
	if f.click != nil {
		return f.click(el)
	}
	return nil
}

func (f *fakePage) Attribute(ctx context.Context, el browser.Element, name string) (string, error) {
	if err := f.record(ctx, "attribute:%d:%s", el.NodeID(), name); err != nil {
		return "", err
	}
	if f.attribute != nil {
		return f.attribute(el, name)
	}
	return "", nil
}

func (f *fakePage) Type(ctx context.Context, el browser.Element, text string) error {
	if err := f.record(ctx, "type:%d:%s", el.NodeID(), text); err != nil {
		return err
	}
	if f.typeText != nil {
		return f.typeText(el, text)
	}
	return nil
}

func (f *fakePage) SendKey(ctx context.Context, key string) error {
	if err := f.record(ctx, "sendKey:%q", key); err != nil {
		return err
	}
	if f.sendKey != nil {
		return f.sendKey(key)
	}
	return nil
}

func (f *fakePage) Refresh(ctx context.Context) error {
	if err := f.record(ctx, "refresh"); err != nil {
		return err
	}
	if f.refresh != nil {
		return f.refresh()
	}
	return nil
}

func (f *fakePage) Maximize(ctx context.Context) error {
	if err := f.record(ctx, "maximize"); err != nil {
		return err
	}
	if f.maximize != nil {
		return f.maximize()
	}
	return nil
}

// Close is recorded even after cancellation; closing must always happen.
func (f *fakePage) Close() error {
	f.mu.Lock()
	f.calls = append(f.calls, "close")
	f.mu.Unlock()
	return f.closeErr
}

// mockChannel is a testify mock of notify.Channel.
type mockChannel struct {
	mock.Mock
}

var _ notify.Channel = (*mockChannel)(nil)

func (m *mockChannel) Send(ctx context.Context, ev notify.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *mockChannel) sentKinds() []notify.Kind {
	var kinds []notify.Kind
	for _, call := range m.Calls {
		if call.Method == "Send" {
			kinds = append(kinds, call.Arguments.Get(1).(notify.Event).Kind)
		}
	}
	return kinds
}
