package config

import "time"

// DefaultUserAgent is a fixed desktop Chrome user agent presented by fresh
// browsing contexts.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// BrowserConfig configures the headless browser controller.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless"`
	Bin       string `yaml:"bin"`        // empty = rod's managed Chromium
	NoSandbox bool   `yaml:"no_sandbox"` // needed in most containers
	// DevTools websocket of an already running Chrome. When set nothing is
	// launched and only the browsing context is closed on stop.
	ControlURL string `yaml:"control_url"`

	// Persisted cookies and local storage of an authenticated session.
	SessionFile string `yaml:"session_file"`

	UserAgent      string `yaml:"user_agent"`
	Locale         string `yaml:"locale"`
	Timezone       string `yaml:"timezone"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`

	NavigationTimeout string `yaml:"navigation_timeout"`
	ElementTimeout    string `yaml:"element_timeout"`
}

// GetNavigationTimeout returns the per-navigation timeout.
func (c BrowserConfig) GetNavigationTimeout() time.Duration {
	return parseDuration(c.NavigationTimeout, 30*time.Second)
}

// GetElementTimeout returns how long to wait for an expected control.
func (c BrowserConfig) GetElementTimeout() time.Duration {
	return parseDuration(c.ElementTimeout, 10*time.Second)
}

// ExecutorConfig paces the reply-and-like action.
type ExecutorConfig struct {
	PageSettleDelay string `yaml:"page_settle_delay"`
	StepDelay       string `yaml:"step_delay"`
}

// GetPageSettleDelay returns the wait after opening the target post.
func (c ExecutorConfig) GetPageSettleDelay() time.Duration {
	return parseDuration(c.PageSettleDelay, 3*time.Second)
}

// GetStepDelay returns the pause between UI steps.
func (c ExecutorConfig) GetStepDelay() time.Duration {
	return parseDuration(c.StepDelay, time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
