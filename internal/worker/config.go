// Package worker consumes history events and persists them through a single writer.
package worker

import (
	"time"
)

// ConsumerConfig holds configuration for the history consumer.
type ConsumerConfig struct {
	// MaxAttempts is the number of append attempts per event before the
	// message is nacked for redelivery.
	// Default: 5
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	// Default: 200ms
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between retries.
	// Default: 5 seconds
	MaxBackoff time.Duration

	// AppendTimeout bounds a single append.
	// Default: 10 seconds
	AppendTimeout time.Duration

	// QueueSize is the number of events that may wait for the writer.
	// Default: 16
	QueueSize int
}

// DefaultConsumerConfig returns the default consumer configuration.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		AppendTimeout:  10 * time.Second,
		QueueSize:      16,
	}
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = def.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.AppendTimeout <= 0 {
		c.AppendTimeout = def.AppendTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	return c
}
