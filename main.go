package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"chatapp-local/internal/account"
	"chatapp-local/internal/database"
	"chatapp-local/internal/handlers"
	"chatapp-local/internal/hub"
	"chatapp-local/internal/jwt"
	"chatapp-local/internal/keyValue"
	"chatapp-local/internal/messages"
	"chatapp-local/internal/models"
	"chatapp-local/internal/snowflake"
	"chatapp-local/internal/social"
	"chatapp-local/internal/storage"
	"chatapp-local/internal/workspace"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupLogger(cfg models.ConfigFile) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	if cfg.LogToFile {
		config.OutputPaths = []string{"app.log", "stdout"}
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		config.Level = level
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return logger.Sugar(), nil
}

func readConfigFile() (models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupRedis(cfg models.ConfigFile) (*redis.Client, error) {
	address := cfg.RedisAddress
	if address == "" {
		address = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func main() {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer sugar.Sync()

	// tables always live in the database, redis only takes over the cache and events
	db, dialect, err := database.Setup(&cfg, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	defer db.Close()

	tablesStore := keyValue.NewSQL(sugar, db, dialect)

	var cache keyValue.Store
	var redisClient *redis.Client

	if cfg.SelfContained {
		sugar.Info("Running self-contained, cache and events stay in this process")
		cache = keyValue.NewHashmap(sugar)
	} else {
		sugar.Info("Connecting to redis...")
		redisClient, err = setupRedis(cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		defer redisClient.Close()
		cache = keyValue.NewRedis(sugar, redisClient)
	}
	defer cache.Close()

	events := hub.New(sugar, redisClient)

	ids, err := snowflake.New(cfg.SnowflakeWorkerID)
	if err != nil {
		sugar.Fatal(err)
	}

	tables := storage.NewTables(tablesStore, cfg.KeyPrefix, sugar)

	workspaces := workspace.NewDirectory(tables, events, sugar)
	accounts := account.NewDirectory(tables.Users, workspaces, events, sugar, cfg.BcryptCost)
	graph := social.NewGraph(tables.Users, events, sugar)
	messageLog := messages.NewLog(ids, events, sugar)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go messageLog.Forget(ctx, events.Subscribe(ctx, hub.ChannelDeleted, hub.ServerDeleted))

	isHttps := cfg.TlsCert != "" && cfg.TlsKey != ""

	var httpProtocol string
	if isHttps {
		httpProtocol = "https"
	} else {
		httpProtocol = "http"
	}

	jwt.Setup(cfg.JwtSecret, isHttps)

	sugar.Infof("Server is running on %s://%s:%s", httpProtocol, cfg.Address, cfg.Port)

	err = handlers.Setup(isHttps, &cfg, sugar, handlers.Dependencies{
		Accounts:   accounts,
		Social:     graph,
		Workspaces: workspaces,
		Messages:   messageLog,
		Cache:      cache,
		Pointer:    tables.CurrentUser,
	})
	if err != nil {
		sugar.Fatal(err)
	}
}
