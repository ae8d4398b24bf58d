package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ayazawa/kintore/internal/auth"
	"github.com/ayazawa/kintore/internal/config"
	"github.com/ayazawa/kintore/internal/dedup"
	"github.com/ayazawa/kintore/internal/httpapi"
	"github.com/ayazawa/kintore/internal/ledger"
	"github.com/ayazawa/kintore/internal/metrics"
	"github.com/ayazawa/kintore/internal/notify"
	"github.com/ayazawa/kintore/internal/roster"
	"github.com/ayazawa/kintore/internal/scanner"
	"github.com/ayazawa/kintore/internal/service"
	"github.com/ayazawa/kintore/internal/settlement"
	"github.com/ayazawa/kintore/internal/storage/sqlite"
	"github.com/ayazawa/kintore/pkg/logging"
)

func main() {
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

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	if err := roster.EnsureLoaded(context.Background(), store, cfg.RosterPath); err != nil {
		slog.Error("Failed to load roster", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	led := ledger.New(store, loc)
	index := dedup.NewIndex(store)
	recorder := notify.NewRecorder(cfg.RecorderURL, 5*time.Second)
	broadcaster := notify.NewBroadcaster(cfg.PushURL, cfg.PushToken, 10*time.Second)

	svc := service.New(led, index, store, recorder, m, loc)
	sc := scanner.New(store, loc)
	engine := settlement.NewEngine(store, broadcaster, decimal.NewFromInt(cfg.FlatFee), loc)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration())

	handler := httpapi.New(svc, sc, engine, jwtManager, m, loc, cfg.GroupID, cfg.AdminPasswordHash)
	router := httpapi.NewRouter(handler)

	// h2c lets the reverse proxy in front of the webhook speak cleartext HTTP/2.
	h2cHandler := h2c.NewHandler(router, &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Server starting", "address", addr, "group_id", cfg.GroupID, "tz", cfg.HomeTZ)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
