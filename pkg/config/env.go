package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files (".env" when none
// are named) without overriding the existing environment. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides settings from SIVAGUARD_* variables. PORT is honoured
// for the listen address when SIVAGUARD_ADDR is unset.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SIVAGUARD_ADDR"); v != "" {
		c.ListenAddr = v
	} else if v := os.Getenv("PORT"); v != "" {
		c.ListenAddr = ":" + v
	}
	if v := os.Getenv("SIVAGUARD_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("SIVAGUARD_AUDIT_DIR"); v != "" {
		c.AuditDir = v
	}
}
