package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivecrm/contactbook/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository = (*PostgresUserRepo)(nil)
	_ RoleRepository = (*PostgresRoleRepo)(nil)
)

const userColumns = `u.id, u.username, u.email, u.password_hash, u.is_active, COALESCE(u.avatar_url, ''), u.role_id, r.name, u.created_at, u.updated_at`

// PostgresUserRepo implements UserRepository on a pgx pool.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const insertUserSQL = `INSERT INTO users (id, username, email, password_hash, is_active, avatar_url, role_id)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
RETURNING created_at, updated_at`

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	row := r.db.QueryRow(ctx, insertUserSQL,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.AvatarURL,
		user.RoleID,
	)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrEmailExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.email = $1`
	return r.scanOne(ctx, query, email)
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id = $1`
	return r.scanOne(ctx, query, userID)
}

func (r *PostgresUserRepo) Activate(ctx context.Context, userID int64) error {
	ct, err := r.db.Exec(ctx, `UPDATE users SET is_active = TRUE, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("activate user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) UpdateAvatar(ctx context.Context, email, url string) (domain.User, error) {
	ct, err := r.db.Exec(ctx, `UPDATE users SET avatar_url = $2, updated_at = now() WHERE email = $1`, email, url)
	if err != nil {
		return domain.User{}, fmt.Errorf("update avatar: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return r.GetByEmail(ctx, email)
}

func (r *PostgresUserRepo) scanOne(ctx context.Context, query string, arg any) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.IsActive,
		&u.AvatarURL,
		&u.RoleID,
		&u.RoleName,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// PostgresRoleRepo implements RoleRepository.
type PostgresRoleRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRoleRepo(pool *pgxpool.Pool) *PostgresRoleRepo {
	return &PostgresRoleRepo{db: pool}
}

func (r *PostgresRoleRepo) GetByName(ctx context.Context, name string) (domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Role{}, domain.ErrNotFound
		}
		return domain.Role{}, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (r *PostgresRoleRepo) Ensure(ctx context.Context, role domain.Role) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		role.ID, role.Name,
	)
	if err != nil {
		return fmt.Errorf("ensure role: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
