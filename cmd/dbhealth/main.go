package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	repo "github.com/joseph-ayodele/fan-ledger/internal/repository"
)

func main() {
	cfg, err := common.LoadConfig(os.Getenv("FANLEDGER_CONFIG"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Println("ERROR:", err)
		log.Println("  set LEDGER_BACKEND=xlsx|sqlite|postgres and LEDGER_PATH or DB_URL")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// postgres stores are pinged while opening
	store, err := repo.OpenStore(ctx, cfg.Store, nil)
	if err != nil {
		log.Fatalf("store health: FAIL (%v)", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("ERROR: closing store: %v", err)
		}
	}()
	log.Printf("store health: OK (%s)", cfg.Store.Backend)

	tabs, err := store.Tabs(ctx)
	if err != nil {
		log.Fatalf("listing tabs: %v", err)
	}
	log.Printf("tabs count: %d", len(tabs))
	for i, t := range tabs {
		log.Printf("- [%d] %s", i+1, t)
	}

	names, err := repo.NewRosterRepository(store, cfg.Ledger.RosterTab, nil).List(ctx)
	if err != nil {
		log.Fatalf("listing roster: %v", err)
	}
	log.Printf("roster members: %d", len(names))
}
