package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP API settings.
type Server struct {
	Bind string `toml:"bind"`
}

// Redis contains the connection settings for the result archive.
type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// Archive contains the duplicate-detection cache settings.
type Archive struct {
	Enabled bool `toml:"enabled"`
	// MaxDistance is the largest phash Hamming distance still treated as
	// the same image.
	MaxDistance int `toml:"max_distance"`
	// MaxResults caps how many near-duplicates one lookup may return.
	MaxResults int `toml:"max_results"`
	// TTLDays is the record lifetime; zero keeps records forever.
	TTLDays int `toml:"ttl_days"`
}

// TraceMoe contains the trace.moe engine settings.
type TraceMoe struct {
	Enabled   bool     `toml:"enabled"`
	APIKey    string   `toml:"api_key"`
	Threshold *float64 `toml:"threshold"`
	Limit     *int     `toml:"limit"`
}

// SauceNao contains the SauceNao engine settings. The engine stays disabled
// without an API key.
type SauceNao struct {
	Enabled   bool     `toml:"enabled"`
	APIKey    string   `toml:"api_key"`
	Threshold *float64 `toml:"threshold"`
	Limit     *int     `toml:"limit"`
}

// IQDB contains the IQDB engine settings.
type IQDB struct {
	Enabled   bool     `toml:"enabled"`
	Threshold *float64 `toml:"threshold"`
	Limit     *int     `toml:"limit"`
}

// Danbooru contains the Danbooru provider settings. Credentials are optional
// and only raise the backend rate limit.
type Danbooru struct {
	Enabled bool   `toml:"enabled"`
	Login   string `toml:"login"`
	APIKey  string `toml:"api_key"`
}

// Providers toggles the remaining enrichment providers.
type Providers struct {
	AniList   bool     `toml:"anilist"`
	Gelbooru  bool     `toml:"gelbooru"`
	Safebooru bool     `toml:"safebooru"`
	MangaDex  bool     `toml:"mangadex"`
	Danbooru  Danbooru `toml:"danbooru"`
}

// Search contains orchestration settings.
type Search struct {
	// Concurrency bounds the number of simultaneous outbound backend
	// calls across all engines and providers.
	Concurrency int `toml:"concurrency"`
	// FetchMaxBytes caps the size of an image downloaded for hashing.
	FetchMaxBytes int64 `toml:"fetch_max_bytes"`
}

// Prefs contains the per-chat preference store settings.
type Prefs struct {
	Path string `toml:"path"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"` // "text" or "json"
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
}

// Config encapsulates all saucery settings.
type Config struct {
	Server    Server    `toml:"server"`
	Redis     Redis     `toml:"redis"`
	Archive   Archive   `toml:"archive"`
	TraceMoe  TraceMoe  `toml:"tracemoe"`
	SauceNao  SauceNao  `toml:"saucenao"`
	IQDB      IQDB      `toml:"iqdb"`
	Providers Providers `toml:"providers"`
	Search    Search    `toml:"search"`
	Prefs     Prefs     `toml:"prefs"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/saucery/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// variables prefixed SAUCERY_ override file values, so secrets never have
// to live on disk.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("saucery.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// applyEnv overlays SAUCERY_* environment variables on the loaded values.
func (c *Config) applyEnv() {
	overlay := map[string]*string{
		"SAUCERY_BIND":             &c.Server.Bind,
		"SAUCERY_REDIS_ADDR":       &c.Redis.Addr,
		"SAUCERY_REDIS_PASSWORD":   &c.Redis.Password,
		"SAUCERY_TRACEMOE_API_KEY": &c.TraceMoe.APIKey,
		"SAUCERY_SAUCENAO_API_KEY": &c.SauceNao.APIKey,
		"SAUCERY_DANBOORU_LOGIN":   &c.Providers.Danbooru.Login,
		"SAUCERY_DANBOORU_API_KEY": &c.Providers.Danbooru.APIKey,
		"SAUCERY_PREFS_PATH":       &c.Prefs.Path,
		"SAUCERY_LOG_LEVEL":        &c.Logging.Level,
		"SAUCERY_LOG_FORMAT":       &c.Logging.Format,
	}
	for name, target := range overlay {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*target = v
		}
	}

	if v, ok := os.LookupEnv("SAUCERY_REDIS_DB"); ok {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v, ok := os.LookupEnv("SAUCERY_ARCHIVE_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Archive.Enabled = b
		}
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the given location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
