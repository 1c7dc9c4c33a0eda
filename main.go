package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/phrasebot/internal/bot"
	"github.com/example/phrasebot/internal/database"
	"github.com/example/phrasebot/internal/importer"
	"github.com/example/phrasebot/internal/scheduler"
	"github.com/example/phrasebot/internal/srs"
)

func main() {
	importFile := flag.String("import", "", "import phrases from an Excel or CSV file and exit")
	flag.Parse()

	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	itemRepo := database.NewItemRepository(db)
	userRepo := database.NewUserRepository(db)
	stateRepo := database.NewStateRepository(db)
	progressRepo := database.NewProgressRepository(db)
	eventRepo := database.NewEventRepository(db)

	if *importFile != "" {
		runImport(itemRepo, *importFile)
		return
	}

	engine, err := srs.NewEngine(engineConfig(), itemRepo, stateRepo, progressRepo, eventRepo,
		srs.WithTargetSource(userRepo), srs.WithLevelSource(userRepo))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	b, err := bot.New(token, engine, userRepo, bot.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if enabled, err := strconv.ParseBool(os.Getenv("ENABLE_SCHEDULER")); err != nil || enabled {
		sched := scheduler.New(b, engine, userRepo)
		sched.Start()
		defer sched.Stop()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := b.Stop(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}

		close(done)
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	go func() {
		if err := b.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Bot error: %v", err)
		}
	}()

	<-done
	log.Println("Bot stopped successfully")
}

// engineConfig reads the scheduling settings from the environment.
func engineConfig() srs.Config {
	cfg := srs.Config{
		Policy: srs.PolicyKind(os.Getenv("SRS_POLICY")),
	}
	if v := os.Getenv("DAILY_TARGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.DailyTarget = n
		}
	}
	if v := os.Getenv("SRS_MAX_INTERVAL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxIntervalDays = n
		}
	}
	if v := os.Getenv("SRS_RANDOM_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RandomFallback = b
		}
	}
	return cfg
}

func runImport(items *database.ItemRepository, path string) {
	cfg := importer.DefaultConfig()
	cfg.FilePath = path

	result, err := importer.New(items).ImportItems(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	log.Printf("Import finished: %d processed, %d created, %d updated, %d skipped",
		result.TotalProcessed, result.Created, result.Updated, result.Skipped)
	for _, e := range result.Errors {
		log.Printf("Import error: %s", e)
	}
}
