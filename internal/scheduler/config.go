package scheduler

import (
	"time"

	"github.com/samatributa/invoicegen/internal/config"
)

// Config controls the bin purge job.
type Config struct {
	RunInterval time.Duration
	Retention   time.Duration
	JobTimeout  time.Duration
	LockTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Hour,
		Retention:   30 * 24 * time.Hour,
		JobTimeout:  30 * time.Second,
		LockTTL:     time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Bin.PurgeInterval,
		Retention:   cfg.Bin.Retention,
		JobTimeout:  cfg.Bin.PurgeTimeout,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.Retention <= 0 {
		c.Retention = defaults.Retention
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	// The lock must outlive the job it guards.
	if c.LockTTL < c.JobTimeout {
		c.LockTTL = c.JobTimeout + 10*time.Second
	}
	return c
}
