package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/youknownothingjs/ayursutra/internal/config"
	"github.com/youknownothingjs/ayursutra/internal/db"
	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

// The notify worker drains schedule events and hands them to the
// notification collaborator. Delivery transport (SMS/email/WhatsApp) lives
// on the other side of that boundary; here dispatch means logging the event
// and stamping dispatched_at.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("notify-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running notify worker in env=%s interval=%s batch=%d", cfg.Env, cfg.WorkerInterval, cfg.WorkerBatch)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	repo := scheduling.NewPgRepository(pgPool)

	// Run once at startup
	runOnce(rootCtx, repo, cfg.WorkerBatch)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping notify worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, repo, cfg.WorkerBatch)
		}
	}
}

func runOnce(ctx context.Context, repo scheduling.Repository, batch int) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	events, err := repo.FindUndispatched(runCtx, batch)
	if err != nil {
		log.Printf("load undispatched events: %v", err)
		return
	}

	dispatched := 0
	for _, ev := range events {
		log.Printf("dispatch appointment=%s %s->%s payload=%s",
			ev.AppointmentID, ev.PreviousStatus, ev.NewStatus, ev.Payload)

		if err := repo.MarkDispatched(runCtx, ev.ID, time.Now()); err != nil {
			log.Printf("mark event %d dispatched: %v", ev.ID, err)
			continue
		}
		dispatched++
	}

	log.Printf("notify run complete: dispatched=%d in %s", dispatched, time.Since(start))
}
