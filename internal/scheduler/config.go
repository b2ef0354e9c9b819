package scheduler

import (
	"time"
)

// Config controls scheduler intervals and batch sizes. The zero value
// runs every job; auto-generation is opted out of, never opted into,
// so a missing Config cannot silently disable it.
type Config struct {
	RunInterval         time.Duration
	ClaimBatch          int
	OutboxBatch         int
	JobTimeout          time.Duration
	DisableAutoGenerate bool
	DefaultDealer       string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		ClaimBatch:  50,
		OutboxBatch: 100,
		JobTimeout:  30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.ClaimBatch <= 0 {
		c.ClaimBatch = defaults.ClaimBatch
	}
	if c.OutboxBatch <= 0 {
		c.OutboxBatch = defaults.OutboxBatch
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
