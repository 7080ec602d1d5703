package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/youknownothingjs/ayursutra/internal/api"
	"github.com/youknownothingjs/ayursutra/internal/config"
	"github.com/youknownothingjs/ayursutra/internal/db"
	redisclient "github.com/youknownothingjs/ayursutra/internal/redis"
	"github.com/youknownothingjs/ayursutra/internal/scheduling"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s demo=%v", cfg.Env, cfg.HTTPPort, cfg.DemoMode)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo   scheduling.Repository
		locker redisclient.Locker
		pgPool *pgxpool.Pool
		rdb    *redis.Client
	)

	if cfg.DemoMode {
		repo = scheduling.NewMemoryRepository()
		locker = redisclient.NewMutexLocker()
		log.Println("demo mode: in-memory store and in-process lock")
	} else {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		rdb, err = redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		repo = scheduling.NewPgRepository(pgPool)
		locker = redisclient.NewRedisResourceLocker(rdb, cfg.LockTTL)
	}

	hours := scheduling.BusinessHours{
		StartMinute: cfg.DayStartMinute,
		EndMinute:   cfg.DayEndMinute,
		SlotMinutes: cfg.SlotMinutes,
	}

	router := api.NewRouter(api.RouterConfig{
		Service:   scheduling.NewService(repo, locker),
		Projector: scheduling.NewProjector(repo, repo, hours),
		Queue:     scheduling.NewApprovalQueue(repo),
		Registry:  scheduling.NewRegistry(repo, repo),
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}
