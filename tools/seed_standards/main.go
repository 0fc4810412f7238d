package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	costapp "agency-admin/internal/coststandard/application"
	coststandard "agency-admin/internal/coststandard/domain"
	costpostgres "agency-admin/internal/coststandard/infrastructure/postgres"
	"agency-admin/internal/observability/logger"
	"agency-admin/internal/versioning"
)

type config struct {
	dsn        string
	tenantID   string
	currency   string
	migrations string
	levels     string
	from       string
	raiseFrom  string
	raisePct   string
}

// cityBase is the daily cost per city type before the level multiplier.
var cityBase = map[coststandard.CityType]int64{
	coststandard.CityTier1:    1200,
	coststandard.CityNewTier1: 1000,
	coststandard.CityTier2:    800,
	coststandard.CityOther:    600,
}

func main() {
	cfg := parseConfig()
	log := logger.New(logger.Config{Pretty: true, Output: os.Stderr})
	if cfg.dsn == "" {
		log.Fatal().Msg("PG_DSN or DATABASE_URL is required")
	}
	from, err := versioning.ParseDate(cfg.from)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid from date")
	}
	var raiseFrom versioning.Date
	if cfg.raiseFrom != "" {
		if raiseFrom, err = versioning.ParseDate(cfg.raiseFrom); err != nil {
			log.Fatal().Err(err).Msg("invalid raise-from date")
		}
	}
	raise, err := decimal.NewFromString(cfg.raisePct)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid raise-pct")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()

	if cfg.migrations != "" {
		content, err := os.ReadFile(filepath.Clean(cfg.migrations))
		if err != nil {
			log.Fatal().Err(err).Msg("read migrations")
		}
		if _, err := db.Exec(string(content)); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
	}

	svc, err := costapp.NewService(costpostgres.NewRepository(db), cfg.tenantID, costapp.WithCurrency(cfg.currency))
	if err != nil {
		log.Fatal().Err(err).Msg("service")
	}

	ctx := context.Background()
	count := 0
	for i, level := range splitLevels(cfg.levels) {
		multiplier := decimal.NewFromInt(int64(100 + 25*i)).Div(decimal.NewFromInt(100))
		for city, base := range cityBase {
			cost := decimal.NewFromInt(base).Mul(multiplier).Round(2)
			if err := create(ctx, svc, level, city, from, cost, "seed"); err != nil {
				log.Fatal().Err(err).Str("level", level).Str("city", string(city)).Msg("seed standard")
			}
			count++
			if raiseFrom.IsZero() {
				continue
			}
			raised := cost.Mul(decimal.NewFromInt(1).Add(raise.Div(decimal.NewFromInt(100)))).Round(2)
			if err := create(ctx, svc, level, city, raiseFrom, raised, "seed raise"); err != nil {
				log.Fatal().Err(err).Str("level", level).Str("city", string(city)).Msg("seed raise")
			}
			count++
		}
	}
	log.Info().Int("records", count).Str("tenant_id", cfg.tenantID).Msg("seed complete")
}

func create(ctx context.Context, svc *costapp.Service, level string, city coststandard.CityType, from versioning.Date, cost decimal.Decimal, remark string) error {
	_, err := svc.Create(ctx, costapp.CreateInput{
		EmployeeLevel: level,
		CityType:      string(city),
		EffectiveFrom: from,
		DailyCost:     cost,
		Remark:        remark,
	})
	return err
}

func parseConfig() config {
	var cfg config
	flag.StringVar(&cfg.dsn, "pg-dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.tenantID, "tenant-id", envOrDefault("TENANT_ID", "tenant-demo"), "tenant id")
	flag.StringVar(&cfg.currency, "currency", envOrDefault("CURRENCY", "CNY"), "ISO currency code")
	flag.StringVar(&cfg.migrations, "migrations", "", "optional SQL file applied before seeding")
	flag.StringVar(&cfg.levels, "levels", "P3,P4,P5,P6", "comma separated employee levels")
	flag.StringVar(&cfg.from, "from", "2024-01-01", "effective date of the base standards")
	flag.StringVar(&cfg.raiseFrom, "raise-from", "", "effective date of a second, raised version")
	flag.StringVar(&cfg.raisePct, "raise-pct", "5", "raise percentage for the second version")
	flag.Parse()
	return cfg
}

func splitLevels(raw string) []string {
	parts := strings.Split(raw, ",")
	levels := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			levels = append(levels, part)
		}
	}
	return levels
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
