package crap

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultSendWindow = MaxSendWindowSize

// Config holds the settings for a Link and anything built on top of it.
type Config struct {
	// MaxID is the highest channel ID the Link allocates a channel for.
	// Frames addressed to higher IDs are protocol errors.
	MaxID int
	// SendWindow is the number of unacknowledged payload frames a channel may have in flight.
	SendWindow int
	// Logger receives link diagnostics. The package logger is used if nil.
	Logger logrus.FieldLogger
	// NetLog enables debug logging of every frame read and written.
	NetLog bool
	// Stats receives traffic counters, if not nil.
	Stats StatsCollector
}

// DefaultConfig returns a Config with all channel IDs allocated and the maximum send window.
func DefaultConfig() Config {
	return Config{
		MaxID:      ProtocolMaxID,
		SendWindow: defaultSendWindow,
	}
}

// Validate returns an error if the Config cannot be used.
func (cfg Config) Validate() error {
	if cfg.MaxID < 0 || cfg.MaxID > ProtocolMaxID {
		return errors.Wrapf(ErrInvalidParameter, "MaxID %d out of range", cfg.MaxID)
	}
	if cfg.SendWindow < 1 || cfg.SendWindow > MaxSendWindowSize {
		return errors.Wrapf(ErrInvalidParameter, "SendWindow %d out of range", cfg.SendWindow)
	}
	return nil
}

func sanitizeConfig(cfg *Config) Config {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	c := *cfg
	if c.SendWindow == 0 {
		c.SendWindow = defaultSendWindow
	}
	if c.Logger == nil {
		c.Logger = log
	}
	return c
}
