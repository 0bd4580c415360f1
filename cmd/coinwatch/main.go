package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"coinwatch/internal/aggregate"
	"coinwatch/internal/bot"
	"coinwatch/internal/coin"
	"coinwatch/internal/config"
	"coinwatch/internal/httpx"
	"coinwatch/internal/logging"
	"coinwatch/internal/provider/cryptocompare"
	"coinwatch/internal/provider/cryptocompareadapter"
	"coinwatch/internal/provider/timeout"
	"coinwatch/internal/telegram"
	"coinwatch/internal/watchlist"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	requestTimeout := time.Duration(cfg.CryptoCompare.RequestTimeoutSec) * time.Second

	if cfg.CryptoCompare.APIKey == "" {
		logger.Warn("CRYPTOCOMPARE_API_KEY not set; using the anonymous quota")
	}
	cc, err := cryptocompare.NewCryptoCompareAPIClient(
		cfg.CryptoCompare.APIKey,
		cryptocompare.WithBaseURL(cfg.CryptoCompare.Endpoint),
		cryptocompare.WithHTTPClient(httpx.New(requestTimeout)),
	)
	if err != nil {
		return err
	}
	src := &timeout.Source{S: cryptocompareadapter.New(cc), Timeout: requestTimeout}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	store := watchlist.NewRedisStore(rdb, cfg.Redis.KeyPrefix)

	top, err := coin.ParseAll(cfg.Report.Top)
	if err != nil {
		return err
	}
	svc := aggregate.New(src, store, aggregate.Config{
		Currency:       cfg.CryptoCompare.Currency,
		Top:            top,
		Lookback:       time.Duration(cfg.Report.LookbackSec) * time.Second,
		MaxConcurrency: cfg.Report.MaxConcurrency,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; watchlist commands will fail until it is back",
			slog.String("addr", cfg.Redis.Addr), slog.Any("error", err))
	}

	g, gctx := errgroup.WithContext(ctx)
	started := false

	if cfg.Telegram.Token != "" {
		// The poll request must outlive the long-poll window.
		pollTimeout := time.Duration(cfg.Telegram.PollTimeoutSec)*time.Second + requestTimeout
		tg, err := telegram.NewClient(
			cfg.Telegram.Token,
			telegram.WithBaseURL(cfg.Telegram.Endpoint),
			telegram.WithHTTPClient(httpx.New(pollTimeout)),
		)
		if err != nil {
			return err
		}
		poller := bot.NewPoller(tg, bot.NewHandler(svc, logger), logger, bot.PollerConfig{
			PollTimeoutSec: cfg.Telegram.PollTimeoutSec,
			MaxConcurrency: cfg.Telegram.MaxConcurrency,
			CommandTimeout: 3 * requestTimeout,
		})
		g.Go(func() error {
			logger.Info("telegram bot polling", slog.Int("max_concurrency", cfg.Telegram.MaxConcurrency))
			return poller.Run(gctx)
		})
		started = true
	} else {
		logger.Warn("TELEGRAM_TOKEN not set; bot disabled")
	}

	if cfg.Server.Enabled {
		a := &api{svc: svc, log: logger, timeout: 3 * requestTimeout}
		srv := &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           a.routes(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      4 * requestTimeout,
			IdleTimeout:       60 * time.Second,
		}
		g.Go(func() error {
			logger.Info("server listening", slog.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		started = true
	}

	if !started {
		return errors.New("nothing to run: set TELEGRAM_TOKEN or enable the HTTP server")
	}
	err = g.Wait()
	logger.Info("stopped")
	return err
}
