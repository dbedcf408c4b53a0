package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	craftmind "github.com/yono-dev/craftmind"
	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/handler"
	"github.com/yono-dev/craftmind/internal/middleware"
	"github.com/yono-dev/craftmind/internal/repository"
	"github.com/yono-dev/craftmind/internal/service"
	"github.com/yono-dev/craftmind/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(craftmind.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize services
	history := service.NewConversationStore(cfg.MaxHistory)
	cooldown := service.NewCooldownLimiter()
	gemini := service.NewGeminiClient(cfg.GeminiAPIKey)
	fetcher := service.NewImageFetcher()
	library := service.NewLibraryService(repository.NewLibraryRepo(pool), cfg.MaxLibrarySize)
	audit := service.NewAuditLogger(cfg.AuditWebhookURL)

	uploads, err := service.NewUploadChainFromConfig(cfg)
	if err != nil {
		slog.Error("failed to configure image hosting", "error", err)
		os.Exit(1)
	}

	// Controller pointer for use in handler closures
	var ctrl *handler.Controller

	// Create bot
	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {}),
	}
	if cfg.DropPendingUpdates {
		// Skip the backlog that accumulated while the bot was down.
		opts = append(opts, bot.WithInitialOffset(-1))
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Initialize controller
	ctrl = handler.New(handler.Deps{
		Cfg:       cfg,
		History:   history,
		Cooldown:  cooldown,
		Generator: gemini,
		Fetcher:   fetcher,
		Uploader:  uploads,
		Library:   library,
		Audit:     audit,
		Presenter: telegram.NewSender(b),
	})

	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact,
		func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}
			ctrl.StartSession(update.Message.From.ID)
		})

	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix,
		func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}
			if update.Message.Chat.Type != "private" {
				return
			}
			// Skip commands; /start has its own handler
			if len(update.Message.Text) > 0 && update.Message.Text[0] == '/' {
				return
			}
			ctrl.Dispatch(update.Message.From.ID, update.Message.Text)
		})

	// Run the controller loop
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		ctrl.Run(ctx)
	}()

	// Start bot
	slog.Info("starting bot")
	b.Start(ctx)

	// Graceful shutdown: wait for the loop, then flush libraries
	<-loopDone
	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	library.Flush(flushCtx)

	slog.Info("bot stopped gracefully")
}
