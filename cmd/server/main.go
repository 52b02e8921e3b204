package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/greekdrop/greekdrop/internal/api"
	"github.com/greekdrop/greekdrop/internal/config"
	"github.com/greekdrop/greekdrop/internal/export"
	"github.com/greekdrop/greekdrop/internal/hardware"
	"github.com/greekdrop/greekdrop/internal/jobs"
	"github.com/greekdrop/greekdrop/internal/media"
	"github.com/greekdrop/greekdrop/internal/storage/sqlite"
	"github.com/greekdrop/greekdrop/internal/transcription"
	"github.com/greekdrop/greekdrop/internal/websocket"
	"github.com/greekdrop/greekdrop/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "2.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	forceCPU := flag.Bool("force-cpu", false, "Force CPU transcription even when a GPU is detected")
	forceGPU := flag.Bool("force-gpu", false, "Force GPU transcription even when detection fails")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("greekdrop %s\n", Version)
		return
	}

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Precedence: file < environment < flags
	cfg.ApplyEnvOverrides()
	if *debug {
		cfg.Logging.Level = "debug"
	}
	if *forceCPU {
		cfg.Hardware.ForceCPU = true
	}
	if *forceGPU {
		cfg.Hardware.ForceGPU = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// One log file per run
	var logFile string
	if cfg.Logging.Dir != "" {
		if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating log directory: %v\n", err)
			os.Exit(1)
		}
		logFile = filepath.Join(cfg.Logging.Dir,
			fmt.Sprintf("greekdrop-%s.log", time.Now().Format("20060102_150405")))
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: logFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting GreekDrop server",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
		logger.String("log_file", logFile),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Probe host capabilities once at startup
	probe := hardware.NewProbe(hardware.ProbeConfig{
		WhisperPath:    cfg.Transcription.WhisperPath,
		FFmpegPath:     cfg.Transcription.FFmpegPath,
		FFprobePath:    cfg.Transcription.FFprobePath,
		FallbackAPIKey: cfg.Fallback.APIKey,
		ForceCPU:       cfg.Hardware.ForceCPU,
		ForceGPU:       cfg.Hardware.ForceGPU,
	}, log)
	caps := probe.Refresh(ctx, false)
	device := probe.Device(caps)
	log.Info("Transcription device selected", logger.String("device", string(device)))

	// Daily SQLite database
	if err := os.MkdirAll(cfg.Storage.SQLiteBasePath, 0755); err != nil {
		log.Error("Failed to create database directory", logger.Error(err), logger.String("path", cfg.Storage.SQLiteBasePath))
		os.Exit(1)
	}
	dbPath := sqlite.DailyPath(cfg.Storage.SQLiteBasePath)
	log.Info("Using daily database", logger.String("path", dbPath))

	store, err := sqlite.Open(dbPath, log)
	if err != nil {
		log.Error("Failed to open SQLite storage", logger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	transcriptionStorage := sqlite.NewTranscriptionStorage(store.GetDB(), log)

	// WebSocket hub
	wsServer := websocket.NewServer(log)
	go wsServer.Run()

	// Transcription engines: whisper primary, gemini fallback; each is
	// wired only when the host can actually run it
	var whisperEngine *transcription.WhisperEngine
	if caps.Whisper {
		whisperEngine = transcription.NewWhisperEngine(transcription.WhisperConfig{
			BinPath:   cfg.Transcription.WhisperPath,
			ModelsDir: cfg.Paths.ModelsDir,
			Model:     cfg.Transcription.Model,
			Language:  cfg.Transcription.Language,
			Timeout:   time.Duration(cfg.Transcription.TranscribeTimeoutSecs) * time.Second,
		}, device, log)
	} else {
		log.Warn("whisper-cli not found - local transcription disabled")
	}

	var geminiEngine *transcription.GeminiEngine
	if caps.Fallback {
		geminiEngine = transcription.NewGeminiEngine(transcription.GeminiConfig{
			APIKey:   cfg.Fallback.APIKey,
			Model:    cfg.Fallback.Model,
			Language: cfg.Transcription.Language,
			Timeout:  time.Duration(cfg.Fallback.TimeoutSecs) * time.Second,
		}, log)
	}

	var engines []transcription.Engine
	if whisperEngine != nil {
		engines = append(engines, whisperEngine)
	}
	if geminiEngine != nil {
		engines = append(engines, geminiEngine)
	}
	service := transcription.NewService(log, engines...)
	log.Info("Transcription engines configured", logger.Any("engines", service.Engines()))

	prober := media.NewProber(cfg.Transcription.FFprobePath,
		time.Duration(cfg.Transcription.ProbeTimeoutSecs)*time.Second, log)
	converter := media.NewConverter(media.ConverterConfig{
		FFmpegPath:    cfg.Transcription.FFmpegPath,
		SampleRate:    cfg.Transcription.SampleRate,
		Channels:      cfg.Transcription.Channels,
		RemoveSilence: cfg.Transcription.RemoveSilence,
		SilenceFilter: cfg.Transcription.SilenceFilter,
		Timeout:       time.Duration(cfg.Transcription.ConvertTimeoutSecs) * time.Second,
	}, log)
	exporter := export.NewExporter(cfg.Paths.TranscriptionsDir, log)

	manager := jobs.NewManager()
	runner := jobs.NewRunner(ctx, manager, service, exporter, prober, converter, transcriptionStorage, wsServer, log)

	handler := api.NewHandler(runner, manager, probe, whisperEngine, transcriptionStorage, wsServer, cfg, Version, log)
	router := api.NewRouter(handler, cfg.Server.StaticFilesDir)

	// --- Setup for multiple HTTP servers ---
	var servers []*http.Server
	allPorts := []int{cfg.Server.Port}
	if len(cfg.Server.AdditionalPorts) > 0 {
		allPorts = append(allPorts, cfg.Server.AdditionalPorts...)
	}

	log.Info("Configured listener ports", logger.Any("ports", allPorts))

	for _, port := range allPorts {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		server := &http.Server{
			Addr:         addr,
			Handler:      router.Routes(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
		}
		servers = append(servers, server)

		go func(s *http.Server) {
			log.Info("Starting HTTP server", logger.String("addr", s.Addr))
			if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("HTTP server error on startup", logger.String("addr", s.Addr), logger.Error(err))
			}
		}(server)
	}

	log.Info("GreekDrop ready", logger.String("url", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down server...")

	// Cancel the main context so any running job worker winds down
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var wg sync.WaitGroup
	for _, s := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("HTTP server shutdown error", logger.String("addr", srv.Addr), logger.Error(err))
			} else {
				log.Info("HTTP server shutdown complete", logger.String("addr", srv.Addr))
			}
		}(s)
	}
	wg.Wait()

	log.Info("Server fully stopped")
}
