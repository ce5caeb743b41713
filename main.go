package main

import (
	"github.com/redis/go-redis/v9"

	"github.com/wfunc/listenroom/config"
	"github.com/wfunc/listenroom/logger"
	"github.com/wfunc/listenroom/persistence"
	"github.com/wfunc/listenroom/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	// Redis 仅用于限流，连不上也不阻止启动
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Initialize Room Server
	roomServer := server.NewRoomServer(cfg, db, rdb)

	// Start Server
	logger.Log.Infof("Starting room server on %s", cfg.Server.HTTPAddress)
	if err := roomServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
