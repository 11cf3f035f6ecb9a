// internal/workers/score-sentiment/config.go
package scoresentiment

import "time"

// Config enumerates the scoring policy. Earlier iterations of this pipeline
// shipped divergent policies (star-only fallback, blended weighting, raw
// oracle score); these parameters express all of them in one place.
type Config struct {
	// MinTextLength: combined title+comment, whitespace-collapsed, shorter
	// than this skips the oracle when a star rating exists.
	MinTextLength int
	// StarWeight/TextWeight: the blend the oracle is instructed to apply.
	StarWeight float64
	TextWeight float64
	// ClampEnvelope: |score - star baseline| may not exceed this.
	ClampEnvelope int
	// NeutralFallback: used when scoring fails and no star rating exists.
	NeutralFallback int
	// ReparseAttempts: stricter follow-up prompts allowed within a single
	// scoring attempt when the oracle's reply cannot be parsed.
	ReparseAttempts int
	Timeout         time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MinTextLength:   10,
		StarWeight:      0.7,
		TextWeight:      0.3,
		ClampEnvelope:   30,
		NeutralFallback: 50,
		ReparseAttempts: 1,
		Timeout:         5 * time.Minute,
	}
}
