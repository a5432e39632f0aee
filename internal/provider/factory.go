package provider

import (
	"log/slog"

	"saucery/internal/config"
)

// NewFromConfig builds every configured provider in a fixed order. The
// generic and engine-native providers have no backend and are always on.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) []Provider {
	all := []Provider{
		NewGeneric(),
		NewTraceMoeNative(),
		NewSauceNaoNative(),
		NewAniList(AniListOptions{
			Enabled: cfg.Providers.AniList,
			Logger:  logger,
		}),
		NewDanbooru(DanbooruOptions{
			Enabled: cfg.Providers.Danbooru.Enabled,
			Login:   cfg.Providers.Danbooru.Login,
			APIKey:  cfg.Providers.Danbooru.APIKey,
			Logger:  logger,
		}),
		NewGelbooru(GelbooruOptions{
			Enabled: cfg.Providers.Gelbooru,
			Logger:  logger,
		}),
		NewSafebooru(SafebooruOptions{
			Enabled: cfg.Providers.Safebooru,
			Logger:  logger,
		}),
		NewMangaDex(MangaDexOptions{
			Enabled: cfg.Providers.MangaDex,
			Logger:  logger,
		}),
	}

	providers := make([]Provider, 0, len(all))
	for _, p := range all {
		if p.Enabled() {
			providers = append(providers, p)
		}
	}
	return providers
}
