package store

import "codeberg.org/mutker/virtualdyno/internal/errors"

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "virtualdyno.db"
)

type Config struct {
	DBPath  string `mapstructure:"db_path"`
	Enabled bool   `mapstructure:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		DBPath:  defaultDBPath,
		Enabled: false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate DBPath if persistence is enabled
	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}
