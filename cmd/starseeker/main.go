package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/star/starseeker/internal/api"
	"github.com/star/starseeker/internal/audio"
	"github.com/star/starseeker/internal/auth"
	"github.com/star/starseeker/internal/bus"
	"github.com/star/starseeker/internal/catalog"
	"github.com/star/starseeker/internal/config"
	"github.com/star/starseeker/internal/ephemeris"
	"github.com/star/starseeker/internal/health"
	"github.com/star/starseeker/internal/httputil"
	"github.com/star/starseeker/internal/intent"
	"github.com/star/starseeker/internal/journal"
	"github.com/star/starseeker/internal/logging"
	"github.com/star/starseeker/internal/mount"
	"github.com/star/starseeker/internal/pointing"
	"github.com/star/starseeker/internal/resolver"
	"github.com/star/starseeker/internal/stt"
	"github.com/star/starseeker/internal/telemetry"
	"github.com/star/starseeker/internal/tle"
	"github.com/star/starseeker/internal/transmit"
	"github.com/star/starseeker/internal/tts"
	"github.com/star/starseeker/internal/voice"
)

func main() {
	configPath := flag.String("config", os.Getenv("STARSEEKER_CONFIG"), "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "starseeker:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, logCloser := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Enabled:     cfg.Telemetry.TracingEnabled,
		ServiceName: cfg.ServiceName,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.OTLPInsecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer telemetry.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)

	catLoader := starCatalog(cfg.Catalog, logger)
	stars, err := catLoader.LoadContext(ctx)
	if err != nil {
		return fmt.Errorf("load star catalog: %w", err)
	}

	store := tle.NewStore()
	sats := satelliteSource(cfg.Satellites, store, logger)

	res := resolver.New(ephemeris.NewAnalytic(), stars, sats, cfg.Observer, logger,
		resolver.WithSatelliteTimeout(cfg.Satellites.Timeout()))

	conv, err := pointing.NewConverter(cfg.Mount.Law())
	if err != nil {
		return fmt.Errorf("mount law: %w", err)
	}
	if cfg.Mount.CalibrationFile != "" {
		watcher, err := config.NewCalibrationWatcher(cfg.Mount.CalibrationFile, cfg.Mount.Law(), func(law mount.Law) {
			if err := conv.SetLaw(law); err != nil {
				logger.Error("rejected mount calibration", "component", "mount", "error", err)
			}
		}, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("calibration watcher stopped", "component", "mount", "error", err)
			}
		}()
	}

	pub, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	jrnl, err := journal.Open(ctx, cfg.Journal, logger)
	if err != nil {
		return err
	}
	defer jrnl.Close()

	opts := []pointing.ServiceOption{}
	if cfg.Transmit.Enabled {
		sink, err := transmit.NewClient(cfg.Transmit.BaseURL, logger,
			transmit.WithTimeout(time.Duration(cfg.Transmit.TimeoutSeconds)*time.Second),
			transmit.WithRetries(cfg.Transmit.Retries))
		if err != nil {
			return err
		}
		opts = append(opts, pointing.WithTransmitter(sink))
	}
	if pub.Enabled() {
		opts = append(opts, pointing.WithPublisher(pub))
	}
	if jrnl.Enabled() {
		opts = append(opts, pointing.WithJournal(jrnl))
	}
	svc := pointing.NewService(res, conv, cfg.Observer, logger, opts...)

	assistant, source, err := buildAssistant(cfg, svc, logger)
	if err != nil {
		return err
	}
	if source != nil {
		go func() {
			if err := assistant.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("voice assistant stopped", "component", "voice", "error", err)
			}
		}()
	}

	if jrnl.Enabled() {
		go pruneJournal(ctx, jrnl, logger)
	}

	ready := []health.Check{
		{Name: "catalog", Fn: func(context.Context) error {
			if !catLoader.Loaded() {
				return errors.New("star catalog not loaded")
			}
			return nil
		}},
	}
	if pub.Enabled() {
		ready = append(ready, health.Check{Name: "bus", Fn: func(context.Context) error {
			if !pub.Healthy() {
				return errors.New("bus disconnected")
			}
			return nil
		}})
	}

	deps := api.Deps{
		Pointer:    svc,
		Voice:      assistant,
		Satellites: store,
		Ready:      ready,
	}
	if jrnl.Enabled() {
		deps.Journal = jrnl
	}
	srv := api.NewServer(api.Config{
		Addr:          cfg.HTTP.Addr,
		Auth:          auth.Config{Enabled: cfg.HTTP.AuthEnabled, Token: cfg.HTTP.AuthToken, ReadToken: cfg.HTTP.AuthReadToken},
		TrustProxy:    cfg.HTTP.TrustProxy,
		MaxVoicePerIP: cfg.HTTP.MaxVoicePerIP,
	}, deps, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", cfg.HTTP.Addr,
			"auth_enabled", cfg.HTTP.AuthEnabled,
			"observer_lat", cfg.Observer.LatDeg,
			"observer_lon", cfg.Observer.LonDeg,
			"stars", stars.Len(),
			"transmit_enabled", cfg.Transmit.Enabled,
			"voice_enabled", cfg.Voice.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	}
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func starCatalog(cfg config.CatalogConfig, logger *slog.Logger) *catalog.Loader {
	if cfg.Path != "" || cfg.URL == "" {
		return catalog.NewLoader(cfg.Path, logger)
	}
	d := catalog.NewDownloader(cfg.URL, cfg.CacheDir, cfg.Timeout(), logger).
		WithRetry(httputil.DefaultRetryConfig().Attempts(cfg.Retries + 1))
	return catalog.NewLoader("", logger, catalog.WithDownloader(d))
}

func satelliteSource(cfg config.SatellitesConfig, store *tle.Store, logger *slog.Logger) *tle.GroupSource {
	fetcher := tle.NewFetcher(tle.GroupURL(cfg.SourceURL, cfg.Group), logger, cfg.ExtraURLs...).
		WithRetry(httputil.DefaultRetryConfig().Attempts(cfg.Retries + 1))

	var opts []tle.GroupSourceOption
	if cfg.CacheDir != "" {
		opts = append(opts, tle.WithCache(tle.NewCache(cfg.CacheDir, cfg.Group, cfg.MaxFiles)))
		if cfg.CacheFallback {
			opts = append(opts, tle.WithStaleFallback(time.Duration(cfg.CacheMaxAgeSeconds)*time.Second))
		}
	}
	logger.Info("satellite config",
		"group", cfg.Group,
		"extra_urls", cfg.ExtraURLs,
		"cache_dir", cfg.CacheDir,
		"cache_fallback", cfg.CacheFallback,
	)
	return tle.NewGroupSource(fetcher, store, logger, opts...)
}

// buildAssistant wires the voice collaborators. Text interpretation is
// always available; the audio inbox only when voice is enabled.
func buildAssistant(cfg config.Config, svc *pointing.Service, logger *slog.Logger) (*voice.Assistant, audio.Source, error) {
	var transcriber stt.Transcriber = stt.Noop{}
	if cfg.STT.Enabled {
		transcriber = stt.NewWhisperClient(cfg.STT.Endpoint, cfg.STT.Model, cfg.STT.APIKey, cfg.STT.Language,
			time.Duration(cfg.STT.TimeoutSeconds)*time.Second, cfg.STT.Retries)
	}

	var interpreter intent.Interpreter = intent.Direct{}
	if cfg.LLM.Enabled {
		interpreter = intent.NewOllamaInterpreter(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.Temperature,
			time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	}

	announcer, err := tts.New(cfg.TTS, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("tts: %w", err)
	}

	var source audio.Source
	if cfg.Voice.Enabled {
		dir, err := audio.NewDirSource(cfg.Voice.InboxDir, time.Duration(cfg.Voice.PollIntervalMS)*time.Millisecond, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("voice inbox: %w", err)
		}
		source = dir
	}

	send := cfg.Voice.Transmit && svc.CanTransmit()
	return voice.NewAssistant(source, transcriber, interpreter, svc, announcer, send, logger), source, nil
}

func pruneJournal(ctx context.Context, j *journal.Store, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		if err := j.Prune(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("journal prune failed", "component", "journal", "error", err)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
