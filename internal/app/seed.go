package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/relativitydevhub/authservice/internal/models"
	"github.com/relativitydevhub/authservice/internal/repositories"
	"github.com/relativitydevhub/authservice/internal/services"
	pkgauth "github.com/relativitydevhub/authservice/pkg/auth"
)

// Account describes a user created at startup or by the seeder
type Account struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
	Role      models.Role
}

// AdminAccount is the bootstrap administrator
func AdminAccount(email, password string) Account {
	return Account{
		Email:     email,
		FirstName: "Admin",
		LastName:  "User",
		Password:  password,
		Role:      models.RoleAdmin,
	}
}

// EnsureUser creates acct unless a user with its email already exists. Seeded
// accounts are active and have a verified email.
func EnsureUser(ctx context.Context, repo services.UserRepository, hasher *pkgauth.Hasher, acct Account) (bool, error) {
	email := repositories.NormalizeEmail(acct.Email)

	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to check if %s exists: %w", acct.Role, err)
	}
	if exists {
		return false, nil
	}

	if err := pkgauth.ValidatePassword(acct.Password); err != nil {
		return false, fmt.Errorf("%s password: %w", acct.Role, err)
	}

	hash, err := hasher.Hash(acct.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash %s password: %w", acct.Role, err)
	}

	_, err = repo.Create(ctx, &models.User{
		Email:         email,
		FirstName:     acct.FirstName,
		LastName:      acct.LastName,
		PasswordHash:  hash,
		Role:          acct.Role,
		Status:        models.StatusActive,
		EmailVerified: true,
	})
	if errors.Is(err, models.ErrConflict) {
		// created concurrently by another instance
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s user: %w", acct.Role, err)
	}

	return true, nil
}
