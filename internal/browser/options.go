// File: internal/browser/options.go
package browser

import (
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/elective-grabber/internal/config"
)

// allocatorFlags assembles the command line flags for a locally launched browser.
func allocatorFlags(cfg config.BrowserConfig, goos string) map[string]interface{} {
	flags := map[string]interface{}{
		"headless":           cfg.Headless,
		"disable-extensions": true,
		"disable-gpu":        cfg.Headless,
		// Keep pages rendering while the window is in the background.
		"disable-backgrounding-occluded-windows": true,
		"disable-renderer-backgrounding":         true,
	}

	// Add custom arguments from the config file.
	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if flagName == "" {
			continue
		}
		if len(parts) == 2 {
			flags[flagName] = parts[1]
		} else {
			flags[flagName] = true
		}
	}

	// Flags required for running inside containers.
	if goos == "linux" {
		flags["no-sandbox"] = true
		flags["disable-dev-shm-usage"] = true
	}
	return flags
}

// execAllocatorOptions builds the allocator options for local mode.
func execAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if cfg.LocalPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.LocalPath))
	}
	opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	for name, value := range allocatorFlags(cfg, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(name, value))
	}
	return opts
}
