// Package config loads jiten settings from an optional YAML file and the
// environment.
package config

// Config is the root application configuration.
type Config struct {
	DB     DBConfig     `yaml:"db"`
	Search SearchConfig `yaml:"search"`
	Import ImportConfig `yaml:"import"`
	Log    LogConfig    `yaml:"log"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `yaml:"path" env:"JITEN_DB" env-default:"jiten.sqlite3"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	Langs      []string `yaml:"langs"       env:"JITEN_LANGS"       env-default:"eng"`
	MaxResults int      `yaml:"max_results" env:"JITEN_MAX_RESULTS" env-default:"0"`
	RegexCache int      `yaml:"regex_cache" env:"JITEN_REGEX_CACHE" env-default:"256"`
	// NoPrefilter verifies every row instead of glob prefiltered candidates.
	NoPrefilter bool `yaml:"no_prefilter" env:"JITEN_NO_PREFILTER" env-default:"false"`
}

// ImportConfig controls dictionary download and database setup.
type ImportConfig struct {
	// DictURL is the GitHub API URL of a jmdict-simplified release; empty means latest.
	DictURL   string `yaml:"dict_url"   env:"JITEN_DICT_URL"`
	DataDir   string `yaml:"data_dir"   env:"JITEN_DATA"       env-default:"data"`
	Workers   int    `yaml:"workers"    env:"JITEN_WORKERS"    env-default:"4"`
	BatchSize int    `yaml:"batch_size" env:"JITEN_BATCH_SIZE" env-default:"500"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
