package lifecycle

import (
	"time"
)

type Config struct {
	// PollInterval is the delay between reads while waiting for a decryptable
	// flag. It bounds how stale an observed flag can be.
	PollInterval time.Duration `mapstructure:"poll-interval" validate:"gt=0"`
	// MaxPollAttempts bounds the reads while waiting for a decryptable flag.
	MaxPollAttempts uint64 `mapstructure:"max-poll-attempts" validate:"gt=0"`
	// CacheSize is the number of previews and declined reasons kept in memory.
	CacheSize int `mapstructure:"cache-size" validate:"gt=0"`
	// RefreshInterval is the period of the watcher refresh round.
	RefreshInterval time.Duration `mapstructure:"refresh-interval" validate:"gt=0"`
	// RefreshWorkers is the number of evidence items refreshed concurrently.
	RefreshWorkers int `mapstructure:"refresh-workers" validate:"gt=0"`
	// PreviewTimeout bounds a relayer decryption shared by concurrent previews.
	PreviewTimeout time.Duration `mapstructure:"preview-timeout" validate:"gt=0"`
	// SubscribeEvents makes the watcher refresh evidence as soon as a contract
	// event mentions it.
	SubscribeEvents bool `mapstructure:"subscribe-events"`
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    5 * time.Second,
		MaxPollAttempts: 60,
		CacheSize:       1024,
		RefreshInterval: 5 * time.Second,
		RefreshWorkers:  4,
		PreviewTimeout:  time.Minute,
		SubscribeEvents: true,
	}
}
