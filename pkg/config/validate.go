package config

import (
	"fmt"
	"strings"
)

// Validate checks the loaded configuration and normalizes language
// codes. Load calls it automatically.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if err := c.Search.validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Import.validate(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func (s *SearchConfig) validate() error {
	langs := make([]string, 0, len(s.Langs))
	for _, l := range s.Langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" {
			continue
		}
		if len(l) != 3 {
			return fmt.Errorf("langs: %q is not a three letter code", l)
		}
		langs = append(langs, l)
	}
	if len(langs) == 0 {
		return fmt.Errorf("langs must name at least one language")
	}
	s.Langs = langs
	if s.MaxResults < 0 {
		return fmt.Errorf("max_results must be >= 0 (got %d)", s.MaxResults)
	}
	if s.RegexCache <= 0 {
		return fmt.Errorf("regex_cache must be > 0 (got %d)", s.RegexCache)
	}
	return nil
}

func (i *ImportConfig) validate() error {
	if i.Workers <= 0 {
		return fmt.Errorf("workers must be > 0 (got %d)", i.Workers)
	}
	if i.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", i.BatchSize)
	}
	return nil
}

func (l *LogConfig) validate() error {
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json (got %q)", l.Format)
	}
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be debug, info, warn or error (got %q)", l.Level)
	}
	return nil
}
