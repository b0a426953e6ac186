package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// StaffStore provides database operations for cleaning-service employees.
type StaffStore struct {
	db *sql.DB
}

// NewStaffStore creates a StaffStore using the provided connection.
func NewStaffStore(db *sql.DB) (*StaffStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &StaffStore{db: db}, nil
}

const staffColumns = `id, first_name, last_name, role, services_rendered, salary, email, phone, address, created_at, updated_at`

func scanStaff(row interface{ Scan(...any) error }) (*models.Staff, error) {
	var st models.Staff
	if err := row.Scan(
		&st.ID, &st.FirstName, &st.LastName, &st.Role,
		pq.Array(&st.ServicesRendered), &st.Salary,
		&st.Email, &st.Phone, &st.Address, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListStaff returns all staff ordered by name.
func (s *StaffStore) ListStaff(ctx context.Context) ([]models.Staff, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+staffColumns+` FROM staff ORDER BY first_name ASC, last_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list staff: %w", err)
	}
	defer rows.Close()

	var staff []models.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan staff: %w", err)
		}
		staff = append(staff, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate staff: %w", err)
	}
	return staff, nil
}

// GetStaff retrieves a staff member by id.
func (s *StaffStore) GetStaff(ctx context.Context, id int64) (*models.Staff, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = $1`, id,
	)

	st, err := scanStaff(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get staff: %w", err)
	}
	return st, nil
}

// CreateStaff inserts a new staff member. A duplicate email surfaces as
// ErrDuplicateEmail.
func (s *StaffStore) CreateStaff(ctx context.Context, st *models.Staff) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO staff (first_name, last_name, role, services_rendered, salary, email, phone, address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		st.FirstName, st.LastName, st.Role, pq.Array(st.ServicesRendered),
		st.Salary, st.Email, st.Phone, st.Address,
	).Scan(&st.ID, &st.CreatedAt, &st.UpdatedAt)
	if uniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("store: create staff: %w", err)
	}
	return nil
}

// UpdateStaff updates a staff member. Email uniqueness is enforced here as
// well as on create.
func (s *StaffStore) UpdateStaff(ctx context.Context, st *models.Staff) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE staff
		 SET first_name = $1, last_name = $2, role = $3, services_rendered = $4,
		     salary = $5, email = $6, phone = $7, address = $8, updated_at = now()
		 WHERE id = $9`,
		st.FirstName, st.LastName, st.Role, pq.Array(st.ServicesRendered),
		st.Salary, st.Email, st.Phone, st.Address, st.ID,
	)
	if uniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("store: update staff: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStaff removes a staff member. Bookings that referenced the employee
// have their staff_id nulled by the schema.
func (s *StaffStore) DeleteStaff(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete staff: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
