package session

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Config holds session configuration.
type Config struct {
	// Logger receives validation warnings and drop diagnostics.
	Logger *slog.Logger

	// NewID generates transcript message identifiers (default: UUIDv4).
	NewID func() string

	// Now supplies message timestamps (default: time.Now).
	Now func() time.Time

	// EventBufferSize is the event channel buffer size (default: 100).
	EventBufferSize int
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithIDGenerator overrides message ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Config) {
		c.NewID = newID
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		c.Now = now
	}
}

// WithEventBufferSize sets the event channel buffer size.
func WithEventBufferSize(n int) Option {
	return func(c *Config) {
		c.EventBufferSize = n
	}
}

func defaultConfig() Config {
	return Config{
		Logger:          slog.Default(),
		NewID:           uuid.NewString,
		Now:             time.Now,
		EventBufferSize: 100,
	}
}
