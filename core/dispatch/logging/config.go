package logging

import "fmt"

// Config selects and tunes the dispatch history store.
type Config struct {
	// Backend is "none", "jsonl" or "sqlite".
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "none"
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl":
			c.Path = "offboard-history.jsonl"
		case "sqlite":
			c.Path = "offboard-history.db"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "none":
		return nil
	case "jsonl", "sqlite":
		if c.Path == "" {
			return fmt.Errorf("history path is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown history backend %s", c.Backend)
	}
}

// NewStore opens the configured store. It returns nil for the "none" backend.
func NewStore(c Config) (LogStore, error) {
	var (
		store LogStore
		err   error
	)
	switch c.Backend {
	case "", "none":
		return nil, nil
	case "jsonl":
		if c.MaxSizeMB > 0 {
			store, err = NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
		} else {
			store, err = NewJSONLStore(c.Path)
		}
	case "sqlite":
		store, err = NewSQLiteStore(c.Path)
	default:
		return nil, fmt.Errorf("unknown history backend %s", c.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s history: %w", c.Backend, err)
	}
	return store, nil
}
