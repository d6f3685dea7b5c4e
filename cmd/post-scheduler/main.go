package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"ai-post-scheduler/internal/app"
	"ai-post-scheduler/internal/apply"
	"ai-post-scheduler/internal/captions"
	"ai-post-scheduler/internal/config"
	"ai-post-scheduler/internal/database"
	"ai-post-scheduler/internal/linkcard"
	"ai-post-scheduler/internal/llm"
	"ai-post-scheduler/internal/metrics"
	"ai-post-scheduler/internal/publish"
	"ai-post-scheduler/internal/records"
	"ai-post-scheduler/internal/schedule"
	"ai-post-scheduler/internal/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := schedule.SetWindowOverrides(cfg.PostingWindows); err != nil {
		log.Fatalf("Invalid posting window configuration: %v", err)
	}

	// Pick the record store backend: sqlite when a database path is
	// configured, the JSON file store otherwise.
	var store records.Store
	var metricsStore *metrics.Store
	if cfg.DatabasePath != "" {
		db, err := database.NewDB(cfg.DatabasePath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		store = records.NewRepository(db.SQL)
		metricsStore = metrics.NewStore(db.SQL)
	} else {
		fileStore, err := storage.NewFileStore(cfg.RecordStorePath)
		if err != nil {
			log.Fatalf("Failed to initialize record store: %v", err)
		}
		store = fileStore
	}

	var captioner *captions.Generator
	switch {
	case cfg.GeminiAPIKey != "":
		textGen, closer, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		defer closer.Close()
		captioner = captions.NewGenerator(textGen)
	case cfg.GroqAPIKey != "":
		captioner = captions.NewGenerator(llm.NewGroqClient(cfg))
	}

	var publisher publish.Client
	if cfg.PublishAPIURL != "" && cfg.PublishAdminKey != "" {
		publisher = publish.NewClient(cfg)
	}

	runner := apply.NewRunner(store, captioner, publisher)
	application := app.NewApp(cfg, store, runner, metricsStore, linkcard.NewFetcher())

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		start := planCmd.String("start", "", "Range start (YYYY-MM-DD)")
		end := planCmd.String("end", "", "Range end (YYYY-MM-DD)")
		cadence := planCmd.Int("cadence", 3, "Posts per week (1-7)")
		planCmd.Parse(os.Args[2:])

		if _, err := application.PlanSchedule(ctx, *start, *end, *cadence); err != nil {
			log.Fatalf("Plan failed: %v", err)
		}

	case "import":
		importCmd := flag.NewFlagSet("import", flag.ExitOnError)
		file := importCmd.String("file", "", "CSV file to import")
		start := importCmd.String("start", "", "Range start (YYYY-MM-DD)")
		end := importCmd.String("end", "", "Range end (YYYY-MM-DD)")
		cadence := importCmd.Int("cadence", 3, "Posts per week (1-7)")
		doApply := importCmd.Bool("apply", false, "Write the preview after validation")
		importCmd.Parse(os.Args[2:])

		preview, err := application.ImportCSV(ctx, *file, *start, *end, *cadence)
		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		if *doApply {
			application.ApplyPreview(ctx, preview)
		} else {
			fmt.Println("\nRe-run with -apply to write these records.")
		}

	case "apply":
		applyCmd := flag.NewFlagSet("apply", flag.ExitOnError)
		file := applyCmd.String("file", "", "CSV file to import")
		start := applyCmd.String("start", "", "Range start (YYYY-MM-DD)")
		end := applyCmd.String("end", "", "Range end (YYYY-MM-DD)")
		cadence := applyCmd.Int("cadence", 3, "Posts per week (1-7)")
		applyCmd.Parse(os.Args[2:])

		preview, err := application.ImportCSV(ctx, *file, *start, *end, *cadence)
		if err != nil {
			log.Fatalf("Apply failed: %v", err)
		}
		application.ApplyPreview(ctx, preview)

	case "move":
		moveCmd := flag.NewFlagSet("move", flag.ExitOnError)
		key := moveCmd.String("key", "", "Record key to move")
		to := moveCmd.String("to", "", "Target date (YYYY-MM-DD)")
		overwrite := moveCmd.Bool("overwrite", false, "Replace an existing post on the target date")
		moveCmd.Parse(os.Args[2:])

		if err := application.MoveSlot(ctx, *key, *to, *overwrite); err != nil {
			log.Fatalf("Move failed: %v", err)
		}

	case "set-time":
		setTimeCmd := flag.NewFlagSet("set-time", flag.ExitOnError)
		key := setTimeCmd.String("key", "", "Record key to edit")
		at := setTimeCmd.String("at", "", "Posting time (HH:MM)")
		setTimeCmd.Parse(os.Args[2:])

		if err := application.SetPostingTime(ctx, *key, *at); err != nil {
			log.Fatalf("Set time failed: %v", err)
		}

	case "metrics":
		metricsCmd := flag.NewFlagSet("metrics", flag.ExitOnError)
		limit := metricsCmd.Int("limit", 10, "Number of recent runs to show")
		metricsCmd.Parse(os.Args[2:])

		if err := application.ShowMetrics(ctx, *limit); err != nil {
			log.Fatalf("Metrics failed: %v", err)
		}

	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep runs from the last N days")
		cleanupCmd.Parse(os.Args[2:])

		if metricsStore == nil {
			log.Fatalf("Metrics cleanup requires a database-backed store")
		}
		if err := metricsStore.Cleanup(ctx, *days); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Println("Old apply runs removed.")

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: post-scheduler <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan               Generate posting slots for a date range")
	fmt.Println("  import             Validate and merge a CSV into a plan")
	fmt.Println("  apply              Import a CSV and write it in one step")
	fmt.Println("  move               Move a committed post to a new date")
	fmt.Println("  set-time           Manually set a committed post's time")
	fmt.Println("  metrics            Show recent apply runs")
	fmt.Println("  metrics-cleanup    Remove old apply runs")
}
