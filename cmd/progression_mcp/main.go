// Package main runs the progression MCP server over stdio for local use.
// The same server is mounted on the main service at /mcp.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tmduggan/gordon/internal/cache"
	"github.com/tmduggan/gordon/internal/config"
	"github.com/tmduggan/gordon/internal/db"
	"github.com/tmduggan/gordon/internal/progression"
	progressionmcp "github.com/tmduggan/gordon/internal/progression/mcp"
	"github.com/tmduggan/gordon/internal/store"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		AppName:        "progression-mcp",
		MaxConns:       cfg.PostgresMaxConns,
		TracingEnabled: false,
	})
	if err != nil {
		log.Fatalf("db pool: %v", err)
	}
	defer dbPool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: os.Getenv("REDIS_PASS"),
	})
	defer func() {
		_ = rdb.Close()
	}()

	curve, err := cfg.LevelCurve()
	if err != nil {
		log.Fatalf("level curve: %v", err)
	}

	service := progression.NewService(progression.NewServiceParams{
		Engine:   progression.NewEngine(curve),
		Profiles: store.NewProfilesRepo(dbPool),
		Logs:     store.NewLogsRepo(dbPool),
		Library:  store.NewCachedLibrary(store.NewLibraryRepo(dbPool), cfg.LibraryCacheSizeMB, cfg.LibraryCacheTTL.Duration),
		Cache:    cache.NewSnapshotCache(rdb, cfg.SnapshotCacheTTL.Duration),
	})

	server := progressionmcp.NewServer(service)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
