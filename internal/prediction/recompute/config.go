package recompute

import "time"

// Config controls the background recompute loop.
type Config struct {
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval: 6 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultConfig().Interval
	}
	return c
}
