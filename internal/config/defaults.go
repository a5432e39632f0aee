package config

// Default returns the built-in configuration. Engines that work without
// credentials start enabled; SauceNao additionally needs an API key before
// it serves requests.
func Default() Config {
	return Config{
		Server: Server{
			Bind: "127.0.0.1:8480",
		},
		Redis: Redis{
			Addr: "127.0.0.1:6379",
		},
		Archive: Archive{
			Enabled:     true,
			MaxDistance: 6,
			MaxResults:  8,
			TTLDays:     0,
		},
		TraceMoe: TraceMoe{Enabled: true},
		SauceNao: SauceNao{Enabled: true},
		IQDB:     IQDB{Enabled: true},
		Providers: Providers{
			AniList:   true,
			Gelbooru:  true,
			Safebooru: true,
			MangaDex:  true,
			Danbooru:  Danbooru{Enabled: true},
		},
		Search: Search{
			Concurrency:   8,
			FetchMaxBytes: 20 << 20,
		},
		Prefs: Prefs{
			Path: "~/.local/share/saucery/prefs.db",
		},
		Logging: Logging{
			Format: "text",
			Level:  "info",
		},
	}
}
