package engine

import (
	"log/slog"

	"saucery/internal/config"
)

// NewFromConfig builds every configured engine in a fixed order. Disabled
// engines are skipped here rather than at search time so callers only ever
// see engines that can serve requests.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) []Engine {
	all := []Engine{
		NewTraceMoe(TraceMoeOptions{
			APIKey:    cfg.TraceMoe.APIKey,
			Enabled:   cfg.TraceMoe.Enabled,
			Threshold: cfg.TraceMoe.Threshold,
			Limit:     cfg.TraceMoe.Limit,
			Logger:    logger,
		}),
		NewSauceNao(SauceNaoOptions{
			APIKey:    cfg.SauceNao.APIKey,
			Enabled:   cfg.SauceNao.Enabled,
			Threshold: cfg.SauceNao.Threshold,
			Limit:     cfg.SauceNao.Limit,
			Logger:    logger,
		}),
		NewIQDB(IQDBOptions{
			Enabled:   cfg.IQDB.Enabled,
			Threshold: cfg.IQDB.Threshold,
			Limit:     cfg.IQDB.Limit,
			Logger:    logger,
		}),
	}

	engines := make([]Engine, 0, len(all))
	for _, e := range all {
		if e.Enabled() {
			engines = append(engines, e)
		}
	}
	return engines
}
