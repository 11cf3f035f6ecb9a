// internal/workers/fetch-reviews/config.go
package fetchreviews

import "time"

type Config struct {
	PageSize   int
	MaxReviews int
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		PageSize:   20,
		MaxReviews: 100,
		Timeout:    5 * time.Minute,
	}
}
