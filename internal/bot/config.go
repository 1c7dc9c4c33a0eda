package bot

import (
	"time"
)

// Config represents the configuration for the bot
type Config struct {
	// Maximum number of phrases fetched per /learn batch
	PhrasesPerBatch int
	// How long an idle learning session is kept before it is dropped
	SessionTimeout time.Duration
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *Config {
	return &Config{
		PhrasesPerBatch: 10,
		SessionTimeout:  time.Hour * 1,
	}
}
