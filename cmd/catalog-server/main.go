package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/catalog-select/pkg/catalog"
	"github.com/Sternrassler/catalog-select/pkg/logging"
	"github.com/Sternrassler/catalog-select/pkg/pagination"
	"github.com/Sternrassler/catalog-select/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.Setup(logging.FromEnv("catalog-server"))

	// Configuration from environment
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8080")
	userAgent := getEnv("USER_AGENT", "catalog-select/0.1.0")
	baseURL := getEnv("CATALOG_BASE_URL", catalog.DefaultBaseURL)

	navCfg := pagination.DefaultConfig()
	navCfg.Limit = getEnvInt("PAGE_LIMIT", navCfg.Limit)

	sessCfg := session.DefaultConfig()
	sessCfg.CarryOver = getEnvBool("BULK_CARRY_OVER", sessCfg.CarryOver)
	sessCfg.PrefetchBulk = getEnvBool("BULK_PREFETCH", sessCfg.PrefetchBulk)
	sessCfg.MaxAutoAdvance = getEnvInt("BULK_MAX_ADVANCE", sessCfg.MaxAutoAdvance)

	sessionTTL := getEnvDuration("SESSION_TTL", 30*time.Minute)

	// Setup Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("redis", redisURL).Msg("Failed to connect to Redis")
	}
	log.Info().Str("redis", redisURL).Msg("Connected to Redis")

	// Create catalog client
	clientCfg := catalog.DefaultConfig(redisClient, userAgent)
	clientCfg.BaseURL = baseURL
	catalogClient, err := catalog.New(clientCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create catalog client")
	}
	defer catalogClient.Close()

	srv := newServer(catalogClient, catalogClient.Ping, serverConfig{
		Navigator:  navCfg,
		Session:    sessCfg,
		SessionTTL: sessionTTL,
	})
	go srv.janitor(ctx, time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	log.Info().
		Str("addr", httpServer.Addr).
		Str("catalog", baseURL).
		Str("user_agent", userAgent).
		Int("page_limit", navCfg.Limit).
		Bool("carry_over", sessCfg.CarryOver).
		Msg("Starting catalog selection server")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	log.Info().Msg("Server stopped")
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

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
