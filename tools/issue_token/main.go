package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"agency-admin/internal/auth"
	"agency-admin/internal/observability/logger"
)

func main() {
	var (
		secret   string
		tenantID string
		role     string
		subject  string
		ttl      time.Duration
	)
	flag.StringVar(&secret, "secret", envOrDefault("AUTH_JWT_SECRET", envOrDefault("JWT_SECRET", "")), "HS256 signing secret")
	flag.StringVar(&tenantID, "tenant-id", envOrDefault("TENANT_ID", "tenant-demo"), "tenant claim")
	flag.StringVar(&role, "role", "viewer", "viewer, operator or admin")
	flag.StringVar(&subject, "subject", "cli", "subject claim")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	log := logger.New(logger.Config{Pretty: true, Output: os.Stderr})
	normalized, ok := auth.ParseRole(role)
	if !ok {
		log.Fatal().Str("role", role).Msg("unknown role")
	}
	token, err := auth.IssueToken([]byte(secret), tenantID, normalized, subject, ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("issue token")
	}
	fmt.Println(token)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
