package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/relativitydevhub/authservice/internal/app"
	"github.com/relativitydevhub/authservice/internal/config"
	"github.com/relativitydevhub/authservice/internal/database"
	"github.com/relativitydevhub/authservice/internal/models"
	"github.com/relativitydevhub/authservice/internal/repositories"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
	pkglogger "github.com/relativitydevhub/authservice/pkg/logger"
)

// seedAccounts are created when the matching password variable is set
var seedAccounts = []struct {
	account     app.Account
	passwordEnv string
}{
	{
		account:     app.Account{Email: "admin@relativitydevhub.com", FirstName: "Admin", LastName: "User", Role: models.RoleAdmin},
		passwordEnv: "SEED_ADMIN_PASSWORD",
	},
	{
		account:     app.Account{Email: "user@relativitydevhub.com", FirstName: "Test", LastName: "User", Role: models.RoleUser},
		passwordEnv: "SEED_USER_PASSWORD",
	},
	{
		account:     app.Account{Email: "reviewer@relativitydevhub.com", FirstName: "Test", LastName: "Reviewer", Role: models.RoleReviewer},
		passwordEnv: "SEED_REVIEWER_PASSWORD",
	},
}

func main() {
	cfg := config.Read()
	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Database.Validate(); err != nil {
		logger.Error("invalid database configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	repo := repositories.NewUserRepository(db)
	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)

	for _, seed := range seedAccounts {
		acct := seed.account
		acct.Password = os.Getenv(seed.passwordEnv)
		if acct.Password == "" {
			logger.Warn("skipping seed account, password not set",
				slog.String("role", string(acct.Role)),
				slog.String("env", seed.passwordEnv),
			)
			continue
		}

		created, err := app.EnsureUser(ctx, repo, hasher, acct)
		if err != nil {
			return err
		}
		logger.Info("seed account",
			slog.String("email", pkglogger.SanitizedEmail(acct.Email)),
			slog.String("role", string(acct.Role)),
			slog.Bool("created", created),
		)
	}

	logger.Info("seeding completed")
	return nil
}
