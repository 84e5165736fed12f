package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/sudo-init-do/timerenting/internal/admin"
	"github.com/sudo-init-do/timerenting/internal/config"
	"github.com/sudo-init-do/timerenting/internal/db"
)

func main() {
	username := flag.String("username", "", "Only check this user")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseDSN())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	svc := admin.NewService(db.NewStore(pool))

	if *username != "" {
		rec, err := svc.Reconcile(ctx, *username)
		if err != nil {
			log.Fatalf("reconcile %s: %v", *username, err)
		}
		fmt.Printf("%-24s cached=%d ledger=%d entries=%d consistent=%t\n",
			rec.Username, rec.CachedBalance, rec.LedgerBalance, rec.Entries, rec.Consistent)
		if !rec.Consistent {
			os.Exit(2)
		}
		return
	}

	recs, err := svc.ReconcileAll(ctx)
	if err != nil {
		log.Fatalf("reconcile: %v", err)
	}
	bad := 0
	for _, rec := range recs {
		if rec.Consistent {
			continue
		}
		bad++
		fmt.Printf("%-24s cached=%d ledger=%d entries=%d\n",
			rec.Username, rec.CachedBalance, rec.LedgerBalance, rec.Entries)
	}
	fmt.Printf("%d accounts checked, %d inconsistent.\n", len(recs), bad)
	if bad > 0 {
		os.Exit(2)
	}
}
