package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solana-trade-alerts/internal/alert"
	"solana-trade-alerts/internal/config"
	"solana-trade-alerts/internal/decode"
	"solana-trade-alerts/internal/domain"
	"solana-trade-alerts/internal/engine"
	"solana-trade-alerts/internal/market"
	"solana-trade-alerts/internal/observability"
	"solana-trade-alerts/internal/solana"
	"solana-trade-alerts/internal/storage"
	"solana-trade-alerts/internal/storage/memory"
	pgstore "solana-trade-alerts/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("tracker starting",
		zap.String("rpc", cfg.RPCURL),
		zap.String("ws", cfg.WSURL),
		zap.String("botToken", cfg.MaskedBotToken()),
	)

	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warn("second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		}
	}()

	if err := run(ctx, logger, cfg); err != nil && err != context.Canceled {
		logger.Fatal("tracker failed", zap.Error(err))
	}
	logger.Info("tracker stopped")
}

func run(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	// Tracked subscriptions: postgres when configured, otherwise memory.
	var tokens storage.TrackedTokenStore
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		tokens = pgstore.NewTrackedTokenStore(pool)
		logger.Info("using postgres tracked-token store")
	} else {
		tokens = memory.NewTrackedTokenStore()
		logger.Info("using in-memory tracked-token store")
	}

	if err := seedSubscriptions(ctx, logger, tokens, os.Getenv("TRACK")); err != nil {
		return err
	}

	// Dedupe state is deliberately memory-resident; a restart re-seeds
	// from the next poll without back-alerting.
	seen := memory.NewSeenStore(0)

	rpc := solana.NewHTTPClient(cfg.RPCURL)
	ws, err := solana.NewWSClient(ctx, cfg.WSURL, nil, logger.Named("ws"))
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	dexscreener := market.NewDexScreenerClient(logger.Named("dexscreener"), cfg.DexScreenerURL)
	resolver := market.NewResolver(logger.Named("resolver"),
		market.NewPumpFunProvider(logger.Named("pumpfun"), cfg.PumpFunBaseURL),
		dexscreener,
		market.NewCoinGeckoProvider(logger.Named("coingecko"), cfg.CoinGeckoURL),
	)
	birdeye := market.NewBirdeyeClient(logger.Named("birdeye"), cfg.BirdeyeBaseURL, cfg.BirdeyeAPIKey)

	sink := alert.NewTelegramSink(logger.Named("telegram"), cfg.TelegramBotToken, "")
	decoder := decode.NewDecoder()
	dispatcher := engine.NewDispatcher(logger.Named("dispatch"), seen, sink, cfg.DefaultThresholdUSD)

	subscriber := engine.NewStreamSubscriber(engine.StreamSubscriberOptions{
		Logger:       logger.Named("stream"),
		WS:           ws,
		RPC:          rpc,
		Decoder:      decoder,
		Resolver:     resolver,
		Tokens:       tokens,
		Dispatcher:   dispatcher,
		SyncInterval: cfg.StreamSyncInterval,
	})
	rpcPoller := engine.NewRPCPoller(engine.RPCPollerOptions{
		Logger:     logger.Named("rpc-poller"),
		RPC:        rpc,
		Decoder:    decoder,
		Resolver:   resolver,
		Tokens:     tokens,
		Seen:       seen,
		Dispatcher: dispatcher,
		Interval:   cfg.RPCPollInterval,
		Limit:      cfg.SignatureLimit,
		MaxSigAge:  cfg.MaxSignatureAge,
	})
	aggPoller := engine.NewAggregatorPoller(engine.AggregatorPollerOptions{
		Logger:     logger.Named("agg-poller"),
		Lister:     birdeye,
		Tokens:     tokens,
		Seen:       seen,
		Dispatcher: dispatcher,
		Interval:   cfg.AggregatorPollInterval,
		Limit:      cfg.AggregatorLimit,
	})
	handoff := engine.NewHandoffWatcher(engine.HandoffWatcherOptions{
		Logger:      logger.Named("handoff"),
		Locator:     dexscreener,
		Tokens:      tokens,
		Seen:        seen,
		Resyncer:    subscriber,
		Interval:    cfg.HandoffInterval,
		MaxAttempts: cfg.HandoffMaxAttempts,
	})

	// Locate venues for freshly seeded tokens before the adapters start.
	handoff.CheckOnce(ctx)

	var wg sync.WaitGroup
	for _, task := range []func(context.Context) error{
		subscriber.Run,
		rpcPoller.Run,
		aggPoller.Run,
		handoff.Run,
	} {
		wg.Add(1)
		go func(run func(context.Context) error) {
			defer wg.Done()
			run(ctx)
		}(task)
	}

	wg.Wait()
	return ctx.Err()
}

// seedSubscriptions parses the TRACK environment variable: a
// comma-separated list of chatID:mint[:thresholdUSD] entries upserted at
// startup. Invalid entries are configuration errors and abort startup.
func seedSubscriptions(ctx context.Context, logger *zap.Logger, tokens storage.TrackedTokenStore, trackList string) error {
	if trackList == "" {
		return nil
	}

	for _, entry := range strings.Split(trackList, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 2 || len(parts) > 3 {
			return fmt.Errorf("invalid TRACK entry %q, want chatID:mint[:thresholdUSD]", entry)
		}

		chatID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TRACK chat id %q: %w", parts[0], err)
		}

		mint := parts[1]
		if mint == domain.NativeSOLMint {
			return fmt.Errorf("cannot track native SOL (%s)", mint)
		}
		if !decode.ValidMint(mint) {
			return fmt.Errorf("invalid mint address %q", mint)
		}

		var threshold float64
		if len(parts) == 3 {
			threshold, err = strconv.ParseFloat(parts[2], 64)
			if err != nil || threshold < 0 {
				return fmt.Errorf("invalid TRACK threshold %q", parts[2])
			}
		}

		sub := &domain.TrackedToken{
			ChatID:      chatID,
			Mint:        mint,
			MinAlertUSD: threshold,
			Active:      true,
		}
		if err := tokens.Upsert(ctx, sub); err != nil {
			return fmt.Errorf("seed subscription %s: %w", mint, err)
		}
		logger.Info("tracking token",
			zap.Int64("chatID", chatID),
			zap.String("mint", mint),
			zap.Float64("thresholdUSD", threshold),
		)
	}
	return nil
}

func serveMetrics(logger *zap.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
