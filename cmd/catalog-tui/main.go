package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/Sternrassler/catalog-select/pkg/catalog"
	"github.com/Sternrassler/catalog-select/pkg/logging"
	"github.com/Sternrassler/catalog-select/pkg/pagination"
	"github.com/Sternrassler/catalog-select/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catalog-tui: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// stderr belongs to the terminal UI, so logs go to a file or nowhere
	logCfg := logging.FromEnv("catalog-tui")
	if path := getEnv("LOG_FILE", ""); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logCfg.Output = f
		logCfg.Pretty = false
	} else {
		logCfg.Level = logging.LevelDisabled
	}
	logging.Setup(logCfg)

	redisURL := getEnv("REDIS_URL", "localhost:6379")
	userAgent := getEnv("USER_AGENT", "catalog-select-tui/0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", redisURL, err)
	}

	clientCfg := catalog.DefaultConfig(redisClient, userAgent)
	clientCfg.BaseURL = getEnv("CATALOG_BASE_URL", catalog.DefaultBaseURL)
	catalogClient, err := catalog.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create catalog client: %w", err)
	}
	defer catalogClient.Close()

	navCfg := pagination.DefaultConfig()
	if n := getEnvInt("PAGE_LIMIT", 0); n > 0 {
		navCfg.Limit = n
	}

	sessCfg := session.DefaultConfig()
	if v := getEnv("BULK_CARRY_OVER", ""); v == "false" || v == "0" {
		sessCfg.CarryOver = false
	}

	cache := pagination.NewPageCache()
	nav := pagination.NewNavigator(catalogClient, cache, navCfg)
	sess := session.New(nav, cache, sessCfg)
	defer sess.Close()

	log.Info().Str("catalog", clientCfg.BaseURL).Int("page_limit", navCfg.Limit).Msg("Starting terminal client")

	if _, err := tea.NewProgram(newModel(ctx, sess), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}
