package config

import (
	"errors"
	"fmt"
)

// phash values are 64 bits, so no two hashes can be further apart.
const maxHammingDistance = 64

// normalize expands path-valued fields in place.
func (c *Config) normalize() error {
	expanded, err := expandPath(c.Prefs.Path)
	if err != nil {
		return err
	}
	c.Prefs.Path = expanded
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Bind == "" {
		errs = append(errs, errors.New("server.bind must not be empty"))
	}
	if c.Archive.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required while the archive is enabled"))
	}
	if c.Archive.MaxDistance < 0 || c.Archive.MaxDistance > maxHammingDistance {
		errs = append(errs, fmt.Errorf("archive.max_distance must be within [0, %d]", maxHammingDistance))
	}
	if c.Archive.MaxResults < 0 {
		errs = append(errs, errors.New("archive.max_results must not be negative"))
	}
	if c.Archive.TTLDays < 0 {
		errs = append(errs, errors.New("archive.ttl_days must not be negative"))
	}
	if c.Search.Concurrency < 1 {
		errs = append(errs, errors.New("search.concurrency must be at least 1"))
	}
	if c.Search.FetchMaxBytes < 1 {
		errs = append(errs, errors.New("search.fetch_max_bytes must be positive"))
	}

	for _, th := range []*float64{c.TraceMoe.Threshold, c.SauceNao.Threshold, c.IQDB.Threshold} {
		if th != nil && (*th < 0 || *th > 1) {
			errs = append(errs, fmt.Errorf("engine threshold %v must be within [0, 1]", *th))
		}
	}
	for _, lim := range []*int{c.TraceMoe.Limit, c.SauceNao.Limit, c.IQDB.Limit} {
		if lim != nil && *lim < 1 {
			errs = append(errs, fmt.Errorf("engine limit %d must be at least 1", *lim))
		}
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be \"text\" or \"json\"", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not recognized", c.Logging.Level))
	}

	return errors.Join(errs...)
}
