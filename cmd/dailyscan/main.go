// Command dailyscan appends yesterday's presence/absence row to the
// attendance matrix. It is meant to run once per day from a scheduler, just
// after midnight in the home timezone.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ayazawa/kintore/internal/config"
	"github.com/ayazawa/kintore/internal/roster"
	"github.com/ayazawa/kintore/internal/scanner"
	"github.com/ayazawa/kintore/internal/storage/sqlite"
	"github.com/ayazawa/kintore/pkg/logging"
)

func main() {
	dateFlag := flag.String("date", "", "day to scan (YYYY-MM-DD), defaults to yesterday")
	flag.Parse()

	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.HomeTZ)
	if err != nil {
		slog.Error("Failed to load home timezone", "tz", cfg.HomeTZ, "error", err)
		os.Exit(1)
	}

	day := time.Now().In(loc).AddDate(0, 0, -1)
	if *dateFlag != "" {
		day, err = time.ParseInLocation("2006-01-02", *dateFlag, loc)
		if err != nil {
			slog.Error("Invalid -date", "value", *dateFlag, "error", err)
			os.Exit(1)
		}
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	if err := roster.EnsureLoaded(ctx, store, cfg.RosterPath); err != nil {
		slog.Error("Failed to load roster", "error", err)
		os.Exit(1)
	}

	row, err := scanner.New(store, loc).Scan(ctx, day)
	if errors.Is(err, scanner.ErrAlreadyScanned) {
		slog.Info("Row already recorded, nothing to do", "day", day.Format("2006-01-02"))
		return
	}
	if err != nil {
		slog.Error("Scan failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Daily scan complete", "day", row.Day, "marks", row.Marks)
}
