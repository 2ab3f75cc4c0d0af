// internal/browser/session_test.go
package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/elective-grabber/internal/browser"
	"github.com/xkilldash9x/elective-grabber/internal/config"
	"github.com/xkilldash9x/elective-grabber/internal/fault"
	"github.com/xkilldash9x/elective-grabber/internal/retry"
)

const shortlistHTML = `<!DOCTYPE html>
<html><body>
<table><tbody id="shortlist"><tr><td>
  <button class="add" onclick="document.getElementById('out').setAttribute('data-clicked', 'yes')">Add</button>
  <button class="add">Full</button>
</td></tr></tbody></table>
<input id="user" type="text">
<div id="out" data-clicked="no">result</div>
<div id="hidden" style="display:none">hidden</div>
</body></html>`

// findChrome locates a browser binary, honoring CHROME_PATH.
func findChrome() string {
	if p := os.Getenv("CHROME_PATH"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// setupSession starts a headless browser on a page served by httptest.
func setupSession(t *testing.T) (*browser.Session, *httptest.Server) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("no Chrome or Chromium binary found; set CHROME_PATH to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(shortlistHTML))
	}))
	t.Cleanup(srv.Close)

	cfg := config.BrowserConfig{
		Mode:          config.BrowserModeLocal,
		LocalPath:     chrome,
		Headless:      true,
		WindowWidth:   1024,
		WindowHeight:  768,
		ActionTimeout: 15 * time.Second,
	}
	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))

	session, err := browser.NewSession(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	require.NoError(t, session.Navigate(context.Background(), srv.URL))
	return session, srv
}

func TestSession_ShortlistInteraction(t *testing.T) {
	s, _ := setupSession(t)
	ctx := context.Background()
	wait := retry.WaitConfig{Timeout: 5 * time.Second, Interval: 100 * time.Millisecond}

	tables, err := s.FindAll(ctx, "#shortlist")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	visible, err := s.Visible(ctx, tables[0])
	require.NoError(t, err)
	assert.True(t, visible)

	buttons, err := s.FindAll(ctx, ".add")
	require.NoError(t, err)
	require.Len(t, buttons, 2)

	token, err := s.Attribute(ctx, buttons[0], "onclick")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	token, err = s.Attribute(ctx, buttons[1], "onclick")
	require.NoError(t, err)
	assert.Empty(t, token, "a missing attribute reads as empty")

	require.NoError(t, s.MoveTo(ctx, buttons[0]))
	el, err := s.WaitVisible(ctx, buttons[0], wait)
	require.NoError(t, err)
	el, err = s.WaitClickable(ctx, el, wait)
	require.NoError(t, err)
	require.NoError(t, s.Click(ctx, el))

	out, err := s.FindAll(ctx, "#out")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Eventually(t, func() bool {
		v, err := s.Attribute(ctx, out[0], "data-clicked")
		return err == nil && v == "yes"
	}, 5*time.Second, 100*time.Millisecond)

	users, err := s.FindAll(ctx, "#user")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NoError(t, s.Type(ctx, users[0], "student@example.edu"))
	require.NoError(t, s.SendKey(ctx, browser.KeyArrowDown))

	none, err := s.FindAll(ctx, ".does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSession_HiddenElement(t *testing.T) {
	s, _ := setupSession(t)
	ctx := context.Background()

	hidden, err := s.FindAll(ctx, "#hidden")
	require.NoError(t, err)
	require.Len(t, hidden, 1)

	visible, err := s.Visible(ctx, hidden[0])
	require.NoError(t, err)
	assert.False(t, visible)

	_, err = s.WaitVisible(ctx, hidden[0], retry.WaitConfig{Timeout: 500 * time.Millisecond, Interval: 100 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.KindAutomation))
}

func TestSession_RefreshAndClose(t *testing.T) {
	s, _ := setupSession(t)

	require.NoError(t, s.Refresh(context.Background()))
	tables, err := s.FindAll(context.Background(), "#shortlist")
	require.NoError(t, err)
	assert.Len(t, tables, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Navigate(ctx, "about:blank"), context.Canceled)

	first := s.Close()
	assert.Equal(t, first, s.Close(), "Close is idempotent")
}
