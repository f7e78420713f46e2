package gitlab

import "time"

type Config struct {
	ForkTimeout      time.Duration
	ForkPollInterval time.Duration
	CommitsPageSize  int
	CommitsMaxPages  int
}

func DefaultConfig() Config {
	return Config{
		ForkTimeout:      5 * time.Minute,
		ForkPollInterval: 2 * time.Second,
		CommitsPageSize:  100,
		CommitsMaxPages:  50,
	}
}
