package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
)

var (
	redisClient *redis.Client
	natsConn    *nats.Conn
	ctx         = context.Background()
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	log.Println("Starting reservation service...")

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to Redis
	if err := connectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Connect to NATS
	if err := connectNATS(cfg); err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()
	log.Println("Connected to NATS")

	// Seed the coordinator from the configured catalog
	coord := NewCoordinator(cfg.Settings(), cfg.CatalogEvents())
	log.Println("Coordinator initialized with", len(cfg.Catalog), "events")

	publisher := NewNATSPublisher(natsConn)
	server := NewServer(coord, NewRedisLedger(redisClient), publisher)
	router := server.Routes()

	// Start the sweeper that releases expired holds
	StartSweeper(coord, publisher, cfg.SweepInterval())

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down reservation service...")
		os.Exit(0)
	}()

	// Start server
	log.Printf("Reservation service started on %s\n", cfg.Server.Addr)
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func connectRedis(cfg *Config) error {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test connection
	_, err := redisClient.Ping(ctx).Result()
	return err
}

func connectNATS(cfg *Config) error {
	var err error
	natsConn, err = nats.Connect(cfg.NATS.URL)
	return err
}
