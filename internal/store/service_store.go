package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// ServiceStore provides database operations for services and their priced
// variables.
type ServiceStore struct {
	db *sql.DB
}

// NewServiceStore creates a ServiceStore using the provided connection.
func NewServiceStore(db *sql.DB) (*ServiceStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &ServiceStore{db: db}, nil
}

// ListServices returns services ordered by name. When activeOnly is true,
// soft-deleted services are omitted; they always stay resolvable by id via
// GetService.
func (s *ServiceStore) ListServices(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	query := `SELECT id, name, description, icon, is_active, created_at, updated_at FROM services`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(
			&svc.ID, &svc.Name, &svc.Description, &svc.Icon,
			&svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate services: %w", err)
	}

	for i := range services {
		variables, err := s.listVariables(ctx, services[i].ID)
		if err != nil {
			return nil, err
		}
		services[i].Variables = variables
	}
	return services, nil
}

// GetService retrieves a service (active or not) with its variables.
func (s *ServiceStore) GetService(ctx context.Context, id int64) (*models.Service, error) {
	var svc models.Service
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, icon, is_active, created_at, updated_at
		 FROM services WHERE id = $1`,
		id,
	).Scan(&svc.ID, &svc.Name, &svc.Description, &svc.Icon, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get service: %w", err)
	}

	variables, err := s.listVariables(ctx, svc.ID)
	if err != nil {
		return nil, err
	}
	svc.Variables = variables
	return &svc, nil
}

// GetVariable retrieves one priced variable of a service.
func (s *ServiceStore) GetVariable(ctx context.Context, serviceID, variableID int64) (*models.ServiceVariable, error) {
	var v models.ServiceVariable
	err := s.db.QueryRowContext(ctx,
		`SELECT id, service_id, name, unit_price FROM service_variables
		 WHERE id = $1 AND service_id = $2`,
		variableID, serviceID,
	).Scan(&v.ID, &v.ServiceID, &v.Name, &v.UnitPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get service variable: %w", err)
	}
	return &v, nil
}

// CreateService inserts a service and its variables as one transactional
// unit.
func (s *ServiceStore) CreateService(ctx context.Context, svc *models.Service) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin create service tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO services (name, description, icon, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, is_active, created_at, updated_at`,
		svc.Name, svc.Description, svc.Icon,
	).Scan(&svc.ID, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return fmt.Errorf("store: insert service: %w", err)
	}

	if err := insertVariables(ctx, tx, svc); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit create service tx: %w", err)
	}
	return nil
}

// UpdateService updates a service and replaces its variables wholesale
// (delete-all-then-recreate) inside one transaction.
func (s *ServiceStore) UpdateService(ctx context.Context, svc *models.Service) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin update service tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`UPDATE services
		 SET name = $1, description = $2, icon = $3, is_active = $4, updated_at = now()
		 WHERE id = $5`,
		svc.Name, svc.Description, svc.Icon, svc.IsActive, svc.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update service: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM service_variables WHERE service_id = $1`, svc.ID,
	); err != nil {
		return fmt.Errorf("store: delete service variables: %w", err)
	}

	if err := insertVariables(ctx, tx, svc); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit update service tx: %w", err)
	}
	return nil
}

// DeactivateService soft-deletes a service by flipping its active flag. The
// row and its variables remain for historical bookings.
func (s *ServiceStore) DeactivateService(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE services SET is_active = FALSE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("store: deactivate service: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ServiceStore) listVariables(ctx context.Context, serviceID int64) ([]models.ServiceVariable, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, service_id, name, unit_price FROM service_variables
		 WHERE service_id = $1 ORDER BY id ASC`,
		serviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list service variables: %w", err)
	}
	defer rows.Close()

	var variables []models.ServiceVariable
	for rows.Next() {
		var v models.ServiceVariable
		if err := rows.Scan(&v.ID, &v.ServiceID, &v.Name, &v.UnitPrice); err != nil {
			return nil, fmt.Errorf("store: scan service variable: %w", err)
		}
		variables = append(variables, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate service variables: %w", err)
	}
	return variables, nil
}

func insertVariables(ctx context.Context, tx *sql.Tx, svc *models.Service) error {
	for i := range svc.Variables {
		v := &svc.Variables[i]
		v.ServiceID = svc.ID
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO service_variables (service_id, name, unit_price)
			 VALUES ($1, $2, $3) RETURNING id`,
			v.ServiceID, v.Name, v.UnitPrice,
		).Scan(&v.ID); err != nil {
			return fmt.Errorf("store: insert service variable: %w", err)
		}
	}
	return nil
}
