package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"stocksleuth/internal/config"
	"stocksleuth/internal/detector"
	"stocksleuth/internal/evidence"
	"stocksleuth/internal/investigation"
	"stocksleuth/internal/llm"
	"stocksleuth/internal/logger"
	"stocksleuth/internal/marketdata"
	"stocksleuth/internal/models"
	"stocksleuth/internal/query"
	"stocksleuth/internal/report"
	"stocksleuth/internal/search"
	"stocksleuth/internal/storage"
	"stocksleuth/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.MaxInvestigations, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	llmClient, err := llm.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client: %v", err)
	}

	marketClient := marketdata.NewClient(marketdata.Options{
		BaseURL: cfg.Market.BaseURL,
		Timeout: cfg.Market.Timeout,
	})

	searchClient := search.NewClient(search.Options{
		BaseURL:           cfg.Tavily.BaseURL,
		APIKey:            cfg.Tavily.APIKey,
		Timeout:           cfg.Tavily.Timeout,
		MaxRetries:        cfg.Tavily.MaxRetries,
		RequestsPerSecond: cfg.Tavily.RequestsPerSecond,
		SearchDepth:       cfg.Tavily.SearchDepth,
		RecencyDays:       cfg.Tavily.RecencyDays,
		IncludeDomains:    cfg.Tavily.IncludeDomains,
	})

	det := detector.New(detector.Config{
		PriceThreshold:  cfg.Detector.PriceThreshold,
		VolumeThreshold: cfg.Detector.VolumeThreshold,
		MinScore:        cfg.Detector.MinScore,
	})

	ctrl := investigation.New(
		query.NewSelector(llmClient),
		searchClient,
		evidence.NewEvaluator(
			evidence.NewScorer(llmClient),
			evidence.NewSynthesizer(llmClient, evidence.DefaultSynthesizerConfig()),
		),
		report.NewAssembler(cfg.Storage.ReportsDir),
		investigation.Config{
			MaxRetries:          cfg.Investigation.MaxRetries,
			ConfidenceThreshold: cfg.Investigation.ConfidenceThreshold,
			MaxSteps:            cfg.Investigation.MaxSteps,
			ResultsPerQuery:     cfg.Investigation.ResultsPerQuery,
		},
	)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if cfg.Telegram.Enabled && telegramClient != nil {
		telegramClient.ListenForCommands(ctx)
	}

	logger.Info("Starting watchlist monitoring (interval: %v, tickers: %d, min_score: %d, confidence_threshold: %.2f)",
		cfg.Market.PollInterval,
		len(cfg.Market.Watchlist),
		cfg.Detector.MinScore,
		cfg.Investigation.ConfidenceThreshold,
	)

	ticker := time.NewTicker(cfg.Market.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Monitoring cycle failed: %v", err)
			if consecutiveFailures == 1 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && cfg.Telegram.Enabled && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial monitoring cycle")
	handleCycleResult(runMonitoringCycle(ctx, marketClient, det, ctrl, store, telegramClient, cfg))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled monitoring cycle")
			handleCycleResult(runMonitoringCycle(ctx, marketClient, det, ctrl, store, telegramClient, cfg))
			if err := store.RotateInvestigations(); err != nil {
				logger.Warn("Failed to rotate investigations: %v", err)
			}
		}
	}
}

func runMonitoringCycle(
	ctx context.Context,
	marketClient *marketdata.Client,
	det *detector.Detector,
	ctrl *investigation.Controller,
	store *storage.Storage,
	telegramClient *telegram.Client,
	cfg *config.Config,
) error {
	startTime := time.Now()
	logger.Info("Starting monitoring cycle")

	anomalies := 0
	var lastErr error
	for _, symbol := range cfg.Market.Watchlist {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		bars, err := marketClient.DailyBars(ctx, symbol, cfg.Market.LookbackDays)
		if err != nil {
			logger.Warn("Failed to fetch bars for %s: %v", symbol, err)
			lastErr = err
			continue
		}

		anomaly, err := det.Check(symbol, bars)
		if err != nil {
			logger.Warn("Detection failed for %s: %v", symbol, err)
			lastErr = err
			continue
		}
		if anomaly == nil {
			logger.Debug("%s looks normal", symbol)
			continue
		}

		anomalies++
		logger.Info("Anomaly detected: %s", anomaly.Describe())
		if err := investigate(ctx, ctrl, store, telegramClient, cfg, anomaly); err != nil {
			lastErr = err
		}
	}

	logger.Info("Monitoring cycle completed in %v (%d tickers, %d anomalies)",
		time.Since(startTime), len(cfg.Market.Watchlist), anomalies)

	return lastErr
}

// investigate runs one full investigation and records the outcome in the
// registry. Failures never break the registry invariant that a created
// row reaches a terminal status.
func investigate(
	ctx context.Context,
	ctrl *investigation.Controller,
	store *storage.Storage,
	telegramClient *telegram.Client,
	cfg *config.Config,
	anomaly *models.AnomalyEvent,
) error {
	anomalyID := uuid.NewString()
	invID := uuid.NewString()

	if err := store.SaveAnomaly(anomalyID, anomaly); err != nil {
		return fmt.Errorf("failed to save anomaly: %w", err)
	}
	if err := store.CreateInvestigation(invID, anomalyID, anomaly.Ticker, time.Now()); err != nil {
		return fmt.Errorf("failed to register investigation: %w", err)
	}

	state, runErr := ctrl.Run(ctx, invID, anomaly)

	status := models.StatusFailed
	var confidence float64
	quality := ""
	rootCause := ""
	reportPath := ""
	iterations := 0

	if state != nil {
		iterations = state.Iteration + 1
		reportPath = state.ReportPath
		if state.Evaluation != nil {
			confidence = state.Evaluation.Confidence
			quality = state.Evaluation.ExplanationQuality
			rootCause = state.Evaluation.RootCause
		}
	}
	if runErr == nil {
		if ctrl.Solved(state) {
			status = models.StatusSolved
		} else {
			status = models.StatusUnsolved
		}
	}

	if err := store.CompleteInvestigation(invID, status, iterations, confidence,
		quality, rootCause, reportPath, time.Now()); err != nil {
		logger.Error("Failed to finalize investigation %s: %v", invID, err)
	}

	if runErr != nil {
		if errors.Is(runErr, investigation.ErrStepLimit) {
			logger.Error("Investigation %s exceeded step limit", invID)
		}
		return fmt.Errorf("investigation %s failed: %w", invID, runErr)
	}

	logger.Info("Investigation %s finished: %s (confidence %.2f, %d iterations)",
		invID, status, confidence, iterations)

	if cfg.Telegram.Enabled && telegramClient != nil {
		if err := telegramClient.SendReport(state); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		}
	}

	return nil
}
