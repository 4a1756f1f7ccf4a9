package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tradecore-io/matchd/params"
	"github.com/tradecore-io/matchd/pkg/api"
	"github.com/tradecore-io/matchd/pkg/core"
	"github.com/tradecore-io/matchd/pkg/core/engine"
	"github.com/tradecore-io/matchd/pkg/storage"
	"github.com/tradecore-io/matchd/pkg/util"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("matchd: %v", err)
	}
}

// run holds all the deferred cleanup so a startup failure still closes
// the journal and flushes the logger on the way out.
func run() error {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Matching engine ----
	// One engine per symbol; every submission is serialized through it.
	// The book always starts empty: only the trade journal survives
	// restarts.
	eng := engine.NewEngine(cfg.Market.Symbol)
	sugar.Infow("engine_initialized", "symbol", cfg.Market.Symbol)

	// ---- Trade journal (optional) ----
	var journal *storage.TradeJournal
	if cfg.Storage.JournalEnabled {
		path := filepath.Join(cfg.Storage.DataDir, "trades")
		journal, err = storage.OpenTradeJournal(path)
		if err != nil {
			return fmt.Errorf("open journal at %s: %w", path, err)
		}
		defer journal.Close()
		sugar.Infow("journal_opened", "path", path, "entries", journal.Len())
	}

	// ---- API server ----
	apiServer := api.NewServer(eng, cfg, sugar)

	// Every execution is journaled and pushed to subscribers.
	eng.OnTrade = func(t core.Trade) {
		if journal != nil {
			if err := journal.Append(t); err != nil {
				sugar.Errorw("journal_append_failed", "trade_id", t.ID, "err", err)
			}
		}
		apiServer.BroadcastTrade(t)
	}

	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	sugar.Info("shutdown_complete")
	return nil
}
