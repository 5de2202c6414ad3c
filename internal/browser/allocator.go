// internal/browser/allocator.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/raidcc/internal/config"
)

const (
	defaultViewportWidth  = 950
	defaultViewportHeight = 950
)

// chromeFlag is a single Chrome command line switch.
type chromeFlag struct {
	name  string
	value interface{}
}

// DefaultAllocatorOptions builds the exec allocator options for cfg on top
// of chromedp's defaults.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range chromeFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}

// chromeFlags lists the switches cfg adds to chromedp's defaults. Later
// entries override earlier ones with the same name.
func chromeFlags(cfg config.BrowserConfig) []chromeFlag {
	flags := []chromeFlag{
		{"headless", cfg.Headless},
		{"disable-gpu", true},
		{"disable-dev-shm-usage", true},
	}
	if cfg.IgnoreTLSErrors {
		// OMSA ships a self-signed certificate.
		flags = append(flags,
			chromeFlag{"ignore-certificate-errors", true},
			chromeFlag{"allow-insecure-localhost", true},
		)
	}
	if cfg.DisableCache {
		flags = append(flags,
			chromeFlag{"disk-cache-size", "1"},
			chromeFlag{"media-cache-size", "1"},
			chromeFlag{"disable-cache", true},
		)
	}
	if cfg.DisableImages {
		flags = append(flags, chromeFlag{"blink-settings", "imagesEnabled=false"})
	}
	if cfg.UserAgent != "" {
		flags = append(flags, chromeFlag{"user-agent", cfg.UserAgent})
	}

	width, height := defaultViewportWidth, defaultViewportHeight
	if w := cfg.Viewport["width"]; w > 0 {
		width = w
	}
	if h := cfg.Viewport["height"]; h > 0 {
		height = h
	}
	flags = append(flags, chromeFlag{"window-size", fmt.Sprintf("%d,%d", width, height)})

	if cfg.UserDataDir != "" {
		flags = append(flags, chromeFlag{"user-data-dir", cfg.UserDataDir})
	}

	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags = append(flags, chromeFlag{name, value})
		} else {
			flags = append(flags, chromeFlag{name, true})
		}
	}
	return flags
}
