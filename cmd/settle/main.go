// Command settle runs the periodic fine settlement: it computes every
// member's net balance over the accumulated matrix, pushes the report to the
// group, and in automatic mode resets the matrix for the next period.
//
// Automatic mode is enabled by -auto or AUTO_MONTHLY=1 (the scheduler sets the
// latter). Manual runs print the report without touching the matrix.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ayazawa/kintore/internal/config"
	"github.com/ayazawa/kintore/internal/notify"
	"github.com/ayazawa/kintore/internal/roster"
	"github.com/ayazawa/kintore/internal/settlement"
	"github.com/ayazawa/kintore/internal/storage/sqlite"
	"github.com/ayazawa/kintore/pkg/logging"
)

func main() {
	autoFlag := flag.Bool("auto", false, "automatic mode: label the report with the previous month and reset the matrix")
	flag.Parse()

	logging.Setup()

	auto := *autoFlag || os.Getenv("AUTO_MONTHLY") == "1"

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

	broadcaster := notify.NewBroadcaster(cfg.PushURL, cfg.PushToken, 10*time.Second)
	engine := settlement.NewEngine(store, broadcaster, decimal.NewFromInt(cfg.FlatFee), loc)

	_, report, err := engine.Run(ctx, auto)
	if errors.Is(err, settlement.ErrNoData) {
		slog.Info("Nothing to settle", "reason", err)
		return
	}
	if err != nil {
		slog.Error("Settlement failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(report)
	slog.Info("Settlement complete", "auto", auto)
}
