package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"tmscore/config"
	"tmscore/engine"
	"tmscore/messaging"
	"tmscore/protocol"
	"tmscore/store"
	"tmscore/tmsapi"
	"tmscore/tripstate"
	"tmscore/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "tmscore.yaml", "path to config file")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if *showVersion {
		fmt.Println("tmscore", Version)
		return
	}

	if err := config.LoadEnv(*envPath); err != nil {
		log.Fatalf("load env: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.ApplyEnv()

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("tmscore: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	var redisStore *tripstate.RedisStore
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("tmscore: redis not available (%v), running without cache", err)
	} else {
		log.Printf("tmscore: redis connected (%s)", cfg.Redis.Address)
		redisStore = tripstate.NewRedisStore(redisClient, cfg.Redis.DecorationTTL)
	}
	cancel()
	defer redisClient.Close()

	// Decoration cache
	tripState := tripstate.NewManager(db, redisStore)
	if err := tripState.SyncRedisFromSQL(context.Background()); err != nil {
		log.Printf("tmscore: redis sync from SQL: %v", err)
	}

	// Upstream TMS backend
	var backend engine.Backend
	if cfg.Backend.BaseURL != "" {
		backend = tmsapi.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout)
		log.Printf("tmscore: backend %s", cfg.Backend.BaseURL)
	} else {
		log.Printf("tmscore: no backend configured, placements stay local")
	}

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("tmscore: messaging connect failed (%v)", err)
	} else {
		log.Printf("tmscore: messaging connected (%s)", msgClient.Backend())
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Backend:    backend,
		TripState:  tripState,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Status ingestor (inbound from the TMS)
	ingestor := protocol.NewIngestor(messaging.NewInboundHandler(eng.Planner()), protocol.StationFilter(cfg.Messaging.StationID))
	if err := msgClient.Subscribe(cfg.Messaging.StatusTopic, func(_ string, data []byte) {
		ingestor.HandleRaw(data)
	}); err != nil {
		log.Printf("tmscore: status ingestor subscribe failed: %v", err)
	} else {
		log.Printf("tmscore: status ingestor listening on %s", cfg.Messaging.StatusTopic)
	}

	// Outbox drainer (scheduler events out to the TMS)
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("tmscore: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("tmscore: ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("tmscore: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("tmscore: stopped")
}
