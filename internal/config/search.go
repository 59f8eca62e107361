package config

import "time"

// SearchConfig configures result discovery.
type SearchConfig struct {
	BaseURL     string `yaml:"base_url"`
	Mode        string `yaml:"mode"` // recent, top
	ScrapeLimit int    `yaml:"scrape_limit"`

	SettleDelay string `yaml:"settle_delay"`
	ScrollPause string `yaml:"scroll_pause"`
	// Upper bound on scroll attempts.
	MaxScrolls int `yaml:"max_scrolls"`
	// Scrolling stops once this many consecutive scrolls reveal nothing new.
	StableScrolls int `yaml:"stable_scrolls"`

	ProfileSettleDelay string `yaml:"profile_settle_delay"`
	// Minimum spacing between profile navigations.
	ProfileInterval string `yaml:"profile_interval"`

	// When set, a full-page screenshot of each settled result view is saved here.
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// GetSettleDelay returns the wait after opening the results view.
func (c SearchConfig) GetSettleDelay() time.Duration {
	return parseDuration(c.SettleDelay, 8*time.Second)
}

// GetScrollPause returns the wait after each scroll.
func (c SearchConfig) GetScrollPause() time.Duration {
	return parseDuration(c.ScrollPause, 2*time.Second)
}

// GetProfileSettleDelay returns the wait after opening a profile.
func (c SearchConfig) GetProfileSettleDelay() time.Duration {
	return parseDuration(c.ProfileSettleDelay, 2*time.Second)
}

// GetProfileInterval returns the minimum spacing of profile navigations.
func (c SearchConfig) GetProfileInterval() time.Duration {
	return parseDuration(c.ProfileInterval, time.Second)
}
