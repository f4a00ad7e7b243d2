// Command create-admin seeds the first administrator account. It does nothing
// when the username is already taken.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"schoolschedule/internal/config"
	"schoolschedule/internal/db"
	"schoolschedule/internal/logging"
	"schoolschedule/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	username := flag.String("username", os.Getenv("ADMIN_USERNAME"), "admin username")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	fullName := flag.String("full-name", "", "optional display name")
	migrate := flag.Bool("migrate", cfg.MigrateOnStart, "apply the schema before seeding")
	flag.Parse()

	if *username == "" || *password == "" {
		logger.Fatal().Msg("username and password are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connection failed")
	}
	defer pool.Close()

	if *migrate {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("schema migration failed")
		}
	}

	queries := db.New(pool)
	existing, err := queries.GetUserByUsername(ctx, *username)
	if err == nil {
		logger.Info().Int32("user_id", existing.ID).Str("username", existing.Username).Msg("user already exists")
		return
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		logger.Fatal().Err(err).Msg("lookup user failed")
	}

	in := service.CreateUserInput{Username: *username, Password: *password, Role: db.RoleAdmin}
	if *fullName != "" {
		in.FullName = fullName
	}
	user, err := service.NewUserService(queries, logger).Create(ctx, in)
	if err != nil {
		logger.Fatal().Err(err).Msg("create admin failed")
	}
	logger.Info().Int32("user_id", user.ID).Str("username", user.Username).Msg("admin created")
}
