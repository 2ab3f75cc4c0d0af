// File: internal/browser/facade.go
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

// Keys used by the poll loop.
const (
	KeyEnter     = kb.Enter
	KeyArrowDown = kb.ArrowDown
)

// Facade is the browser surface the poll loop depends on. Every method may
// fail with an AutomationFault (element missing, stale, obscured, timeout).
// Cancellation of the caller's context is returned unwrapped.
type Facade interface {
	Navigate(ctx context.Context, url string) error
	// FindAll returns the elements currently matching selector, in document order.
	// No match is not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	// Visible reports whether el is currently rendered, without waiting.
	Visible(ctx context.Context, el Element) (bool, error)
	WaitVisible(ctx context.Context, el Element, w retry.WaitConfig) (Element, error)
	// WaitClickable waits until el is both visible and enabled.
	WaitClickable(ctx context.Context, el Element, w retry.WaitConfig) (Element, error)
	// MoveTo scrolls el into view and moves the pointer over it.
	MoveTo(ctx context.Context, el Element) error
	Click(ctx context.Context, el Element) error
	// Attribute returns the value of attribute name on el, or "" when absent.
	Attribute(ctx context.Context, el Element, name string) (string, error)
	// Type focuses el and types text into it.
	Type(ctx context.Context, el Element, text string) error
	// SendKey dispatches a single key to the focused page.
	SendKey(ctx context.Context, key string) error
	Refresh(ctx context.Context) error
	Maximize(ctx context.Context) error
	Close() error
}

// Element is a handle to a node of the page as rendered when it was found.
// Handles go stale when the page re-renders; they are never kept across poll cycles.
type Element struct {
	node *cdp.Node
}

// NewElement wraps a DOM node.
func NewElement(node *cdp.Node) Element {
	return Element{node: node}
}

// NodeID returns the node id the handle points at, or 0 for an empty handle.
func (e Element) NodeID() cdp.NodeID {
	if e.node == nil {
		return 0
	}
	return e.node.NodeID
}

func (e Element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.NodeID()}
}

func (e Element) String() string {
	if e.node == nil {
		return "<nil element>"
	}
	return fmt.Sprintf("<%s #%d>", e.node.LocalName, e.node.NodeID)
}
