package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

const defaultPageSize = 200

// Store provides database-backed accessors for user accounts.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided sql.DB connection.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &Store{db: db}, nil
}

const userColumns = `id, username, email, fullname, phone, address, role, verified, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Fullname, &u.Phone,
		&u.Address, &u.Role, &u.Verified, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`,
		email,
	)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user by email: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a user by primary key.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user by id: %w", err)
	}
	return user, nil
}

// EnsureUser finds the local user for an authenticated email, creating a
// user-role row on first contact. Identities are merged by email so the same
// auth account always resolves to one local user.
func (s *Store) EnsureUser(ctx context.Context, email, fullname string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, fullname, role, verified)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (LOWER(email)) DO UPDATE SET updated_at = now()
		 RETURNING `+userColumns,
		email, email, fullname, models.RoleUser,
	)

	user, err = scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("store: ensure user: %w", err)
	}
	return user, nil
}

// UpdateUserProfile updates the mutable profile fields of a user.
func (s *Store) UpdateUserProfile(ctx context.Context, id int64, username, fullname, phone, address string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE users
		 SET username = $1, fullname = $2, phone = $3, address = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING `+userColumns,
		username, fullname, phone, address, id,
	)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: update user profile: %w", err)
	}
	return user, nil
}

// CreateAdmin inserts a new admin account. Duplicate emails surface as
// ErrDuplicateEmail.
func (s *Store) CreateAdmin(ctx context.Context, username, email, fullname string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, fullname, role, verified)
		 VALUES ($1, $2, $3, $4, TRUE)
		 RETURNING `+userColumns,
		username, email, fullname, models.RoleAdmin,
	)

	user, err := scanUser(row)
	if uniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("store: create admin: %w", err)
	}
	return user, nil
}

// UpdateUserRole sets the role on a user row.
func (s *Store) UpdateUserRole(ctx context.Context, id int64, role string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`,
		role, id,
	)
	if err != nil {
		return fmt.Errorf("store: update user role: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns up to `limit` users ordered by creation time descending.
func (s *Store) ListUsers(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan user: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate users: %w", err)
	}
	return users, nil
}
