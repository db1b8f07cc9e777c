package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relativitydevhub/authservice/internal/database"
	"github.com/relativitydevhub/authservice/internal/models"
)

const userColumns = `id, email, first_name, last_name, password_hash, role, status, email_verified, last_login_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.PasswordHash,
		&user.Role, &user.Status, &user.EmailVerified, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// NormalizeEmail trims surrounding whitespace. Case is kept as submitted;
// matching follows the collation of users.email.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, NormalizeEmail(email)))
}

// List returns users newest first. A limit of zero or less returns every
// row from offset on.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id OFFSET $1`
	args := []interface{}{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

// Create inserts user and returns the stored row. A duplicate email yields
// models.ErrConflict from the unique index.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Status == "" {
		user.Status = models.StatusActive
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO users (id, email, first_name, last_name, password_hash, role, status, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, NormalizeEmail(user.Email), user.FirstName, user.LastName, user.PasswordHash,
		user.Role, user.Status, user.EmailVerified, now,
	))
}

// Update applies the non-nil fields of upd. An empty update returns the
// current row unchanged.
func (r *UserRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if upd.IsEmpty() {
		return r.GetByID(ctx, id)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 7)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Email != nil {
		add("email", NormalizeEmail(*upd.Email))
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.EmailVerified != nil {
		add("email_verified", *upd.EmailVerified)
	}
	add("updated_at", time.Now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	return scanUserRow(r.pool.QueryRow(ctx, query, args...))
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.User, error) {
	return r.Update(ctx, id, models.UserUpdate{Status: &status})
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	return r.Update(ctx, id, models.UserUpdate{Role: &role})
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, id string, verified bool) (*models.User, error) {
	return r.Update(ctx, id, models.UserUpdate{EmailVerified: &verified})
}

// UpdateLastLogin stamps last_login_at and returns the new value
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) (time.Time, error) {
	var lastLogin time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1 RETURNING last_login_at`, id,
	).Scan(&lastLogin)
	if err != nil {
		return time.Time{}, database.MapPostgresError(err)
	}
	return lastLogin, nil
}

// ExistsByEmail is an advisory pre-check; the unique index stays authoritative
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}
