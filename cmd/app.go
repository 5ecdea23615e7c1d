package cmd

import (
	"context"
	"path/filepath"
	"time"

	"VoidFM/cache"
	"VoidFM/catalog"
	"VoidFM/config"
	"VoidFM/core/analysis"
	"VoidFM/core/audio"
	"VoidFM/core/player"
	"VoidFM/core/visual"
	"VoidFM/db"
	"VoidFM/logger"
	"VoidFM/model"
	"VoidFM/repository"
	"VoidFM/storage"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg     *config.Config
	catalog catalog.Provider
	cached  *catalog.Cached
	file    *catalog.FileProvider
	repo    repository.RitualRepository
	store   *storage.MinioStore
	opener  *audio.Opener
	accent  *visual.Resolver
	player  *player.Player
	element audio.Element
}

func initLogger(cfg *config.Config, noConsole bool) {
	logger.InitLogger(logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		NoConsole:  noConsole,
	})
}

// newApp connects the optional backing services and builds the catalog
// chain. Every service that fails to connect is logged and skipped.
func newApp(cfg *config.Config) *app {
	a := &app{cfg: cfg}

	if cache.Enabled(cfg) {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis unavailable, caching disabled", logger.ErrorField(err))
		} else {
			logger.Info("Successfully connected to Redis")
		}
	}

	if db.Enabled(cfg) {
		if err := db.ConnectGormDB(cfg); err != nil {
			logger.Warn("Database unavailable, ritual mirror disabled", logger.ErrorField(err))
		} else if err := db.AutoMigrateModels(&model.Ritual{}); err != nil {
			logger.Warn("Failed to migrate ritual mirror", logger.ErrorField(err))
		} else {
			a.repo = repository.NewGormRitualRepository(db.GormDB)
		}
	}

	if storage.Enabled(cfg) {
		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			logger.Warn("MinIO unavailable", logger.ErrorField(err))
		} else {
			a.store = store
		}
	}

	var objects audio.ObjectStore
	if a.store != nil {
		objects = a.store
	}
	a.opener = audio.NewOpener(objects, "")
	if cfg.CatalogFile != "" {
		// 目录文件中的相对路径以文件所在目录为基准
		a.opener.BaseDir = filepath.Dir(cfg.CatalogFile)
	}
	a.accent = visual.NewResolver(cfg.AccentOverrides, a.opener)

	a.catalog = a.buildCatalog(true)
	if cache.RedisClient != nil {
		a.cached = catalog.NewCached(a.catalog, cache.NewJSONStore(cache.RedisClient), cfg.CatalogCacheTTL)
		a.catalog = a.cached
	}
	return a
}

// buildCatalog chains CMS → local file → database mirror.
func (a *app) buildCatalog(withMirror bool) catalog.Provider {
	var chain []catalog.Provider

	if sanity, err := catalog.NewSanityClient(catalog.SanityConfig{
		ProjectID:  a.cfg.SanityProjectID,
		Dataset:    a.cfg.SanityDataset,
		APIVersion: a.cfg.SanityAPIVersion,
		Token:      a.cfg.SanityToken,
		UseCDN:     a.cfg.SanityUseCDN,
	}); err == nil {
		chain = append(chain, sanity)
	}

	if a.cfg.CatalogFile != "" && a.file == nil {
		file, err := catalog.NewFileProvider(a.cfg.CatalogFile)
		if err != nil {
			logger.Warn("Failed to load catalog file", logger.String("path", a.cfg.CatalogFile), logger.ErrorField(err))
		} else {
			a.file = file
		}
	}
	if a.file != nil {
		chain = append(chain, a.file)
	}

	if withMirror && a.repo != nil {
		chain = append(chain, catalog.RitualsOnly{Source: a.repo})
	}

	if len(chain) == 0 {
		return catalog.Empty{}
	}
	provider := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		provider = catalog.Fallback{Primary: chain[i], Secondary: provider}
	}
	return provider
}

// startPlayer builds the media element and player and loads the playlist.
func (a *app) startPlayer(ctx context.Context) {
	cfg := a.cfg

	var el audio.Element
	if cfg.AudioBackend != "headless" {
		speakerEl, err := audio.NewSpeakerElement(a.opener, audio.NewDecoderRegistry(), cfg.AudioSampleRate)
		if err != nil {
			logger.Warn("Audio output unavailable, using headless element", logger.ErrorField(err))
		} else {
			el = speakerEl
		}
	}
	if el == nil {
		headless := audio.NewHeadlessElement()
		go headless.RunClock(ctx, 250*time.Millisecond)
		el = headless
	}
	a.element = el

	mode, err := analysis.ParseMode(cfg.VisualizerMode)
	if err != nil {
		logger.Warn("Unknown visualizer mode, using frequency", logger.String("mode", cfg.VisualizerMode))
		mode = analysis.ModeFrequency
	}

	var opts []player.Option
	if cache.RedisClient != nil {
		opts = append(opts, player.WithResumeStore(cache.NewResumeCache()))
	}
	a.player = player.New(el,
		analysis.NewPipeline(cfg.AnalyserFFTSize, cfg.VisualizerSamples, mode),
		analysis.NewLoop(cfg.FrameRate),
		opts...)

	a.reloadPlaylist(ctx)

	if a.file != nil {
		go func() {
			err := a.file.Watch(ctx, func() {
				if a.cached != nil {
					if err := a.cached.Invalidate(ctx); err != nil {
						logger.Warn("Failed to invalidate catalog cache", logger.ErrorField(err))
					}
				}
				a.reloadPlaylist(ctx)
			})
			if err != nil {
				logger.Warn("Catalog watch stopped", logger.ErrorField(err))
			}
		}()
	}
}

func (a *app) reloadPlaylist(ctx context.Context) {
	rituals := catalog.SafeFetch(ctx, "rituals", a.catalog.Rituals, nil)
	logger.Info("Playlist loaded", logger.Int("rituals", len(rituals)))
	a.player.SetPlaylist(ctx, rituals)
}

func (a *app) accentRGB(ctx context.Context, ritual *model.Ritual) visual.RGB {
	return a.accent.Resolve(ctx, ritual)
}

// Close releases everything newApp and startPlayer acquired.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.player != nil {
		a.player.Close(ctx)
	}
	if a.element != nil {
		if err := a.element.Close(); err != nil {
			logger.Warn("Failed to close media element", logger.ErrorField(err))
		}
	}
	if err := db.CloseGormDB(); err != nil {
		logger.Warn("Failed to close database", logger.ErrorField(err))
	}
	if err := cache.CloseRedis(); err != nil {
		logger.Warn("Failed to close Redis", logger.ErrorField(err))
	}
	logger.Sync()
}
