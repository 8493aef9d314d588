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
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jensholdgaard/franchise-auction/internal/api"
	"github.com/jensholdgaard/franchise-auction/internal/auction"
	"github.com/jensholdgaard/franchise-auction/internal/bot"
	"github.com/jensholdgaard/franchise-auction/internal/catalog"
	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/health"
	"github.com/jensholdgaard/franchise-auction/internal/leader"
	"github.com/jensholdgaard/franchise-auction/internal/ledger"
	"github.com/jensholdgaard/franchise-auction/internal/notify"
	"github.com/jensholdgaard/franchise-auction/internal/store"
	"github.com/jensholdgaard/franchise-auction/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/franchise-auction/internal/store/memstore"
	_ "github.com/jensholdgaard/franchise-auction/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider(os.Stderr)
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	settings := auction.Settings{
		Increment: cfg.Auction.BidIncrement,
		Rules: ledger.Rules{
			MinFloorPrice: cfg.Auction.MinFloorPrice,
			MinBudget:     cfg.Auction.MinBudget,
		},
		Currency: cfg.Auction.Currency,
	}

	cat, err := catalog.Load(cfg.Auction.CatalogPath, settings.Rules)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	logger.InfoContext(ctx, "catalog loaded",
		slog.String("path", cfg.Auction.CatalogPath),
		slog.Int("players", len(cat.Lots)),
		slog.Int("teams", len(cat.Bidders)),
	)

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "notice journal opened", slog.String("driver", cfg.Database.Driver))

	// The Discord sink only exists while this replica runs the bot.
	var discord atomic.Pointer[bot.ChannelSink]
	sink := notify.Multi(
		notify.LogSink{Logger: logger},
		store.JournalSink{Repo: repos.Journal, Logger: logger},
		notify.SinkFunc(func(ctx context.Context, n notify.Notice) {
			if s := discord.Load(); s != nil {
				s.Notify(ctx, n)
			}
		}),
	)

	engine, err := auction.New(cat, settings, sink, logger, tp.TracerProvider, tp.MeterProvider, clk)
	if err != nil {
		return fmt.Errorf("creating auction: %w", err)
	}

	state := &leader.State{}

	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "journal",
			Check: repos.Ping,
		},
	)
	healthHandler.AddReporter(health.Reporter{Name: "role", Report: state.Role})
	healthHandler.AddReporter(health.Reporter{Name: "auction", Report: func() string {
		return auctionStatus(engine)
	}})

	router := api.NewRouter(
		api.NewHandler(engine, repos.Journal, logger, state.IsLeader),
		api.Options{AllowedOrigins: cfg.Server.AllowedOrigins},
	)
	router.Get("/healthz", healthHandler.LivenessHandler())
	router.Get("/readyz", healthHandler.ReadinessHandler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	// lead is the work only the leader runs. It blocks until ctx is done.
	lead := func(ctx context.Context) error {
		var discordBot *bot.Bot
		if cfg.Discord.Token != "" {
			b, botErr := bot.New(cfg.Discord, engine, logger, tp.TracerProvider)
			if botErr != nil {
				return fmt.Errorf("creating bot: %w", botErr)
			}
			if botErr = b.Start(ctx); botErr != nil {
				return fmt.Errorf("starting bot: %w", botErr)
			}
			discord.Store(b.Sink())
			discordBot = b
		} else {
			logger.InfoContext(ctx, "no discord token configured, running without the bot")
		}

		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctioneer is running",
			slog.String("version", version),
			slog.String("role", state.Role()),
		)

		<-ctx.Done()

		healthHandler.SetReady(false)
		discord.Store(nil)
		if discordBot != nil {
			if stopErr := discordBot.Stop(); stopErr != nil {
				logger.Error("bot shutdown error", slog.Any("error", stopErr))
			}
		}
		return nil
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger, state, func(ctx context.Context) {
			if leadErr := lead(ctx); leadErr != nil {
				logger.ErrorContext(ctx, "leading failed", slog.Any("error", leadErr))
			}
		}, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		state.Set(true)
		if leadErr := lead(ctx); leadErr != nil {
			return leadErr
		}
		logger.Info("shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

func auctionStatus(engine *auction.Engine) string {
	c := engine.Cursor()
	if !c.InProgress {
		return "idle"
	}
	if c.TopBidderID == "" {
		return fmt.Sprintf("%s open", c.ActiveLotID)
	}
	return fmt.Sprintf("%s at %d by %s", c.ActiveLotID, c.TopBidAmount, c.TopBidderID)
}
