package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

// BookingStore provides database operations for bookings and their line
// items.
type BookingStore struct {
	db *sql.DB
}

// NewBookingStore creates a BookingStore using the provided connection.
func NewBookingStore(db *sql.DB) (*BookingStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &BookingStore{db: db}, nil
}

// psql builds squirrel queries with Postgres placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const bookingColumns = `id, user_id, full_name, email, phone, address, city, postcode, frequency,
	preferred_date, preferred_time, scheduled_date, scheduled_time, staff_id, status,
	estimated_price, special_instructions, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*models.Booking, error) {
	var b models.Booking
	if err := row.Scan(
		&b.ID, &b.UserID, &b.FullName, &b.Email, &b.Phone, &b.Address, &b.City,
		&b.Postcode, &b.Frequency, &b.PreferredDate, &b.PreferredTime,
		&b.ScheduledDate, &b.ScheduledTime, &b.StaffID, &b.Status,
		&b.EstimatedPrice, &b.SpecialInstructions, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBooking persists a booking and its line items as one all-or-nothing
// unit. The booking must carry at least one line; partial failure rolls the
// whole unit back.
func (s *BookingStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	if len(booking.Services) == 0 {
		return errors.New("store: booking requires at least one service line")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin create booking tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := tx.QueryRowContext(ctx,
		`INSERT INTO bookings (
			user_id, full_name, email, phone, address, city, postcode, frequency,
			preferred_date, preferred_time, staff_id, status, estimated_price, special_instructions
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`,
		booking.UserID, booking.FullName, booking.Email, booking.Phone,
		booking.Address, booking.City, booking.Postcode, booking.Frequency,
		booking.PreferredDate, booking.PreferredTime, booking.StaffID,
		booking.Status, booking.EstimatedPrice, booking.SpecialInstructions,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return fmt.Errorf("store: insert booking: %w", err)
	}

	for i := range booking.Services {
		line := &booking.Services[i]
		line.BookingID = booking.ID
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO booking_services (booking_id, service_id, service_name, variable_id, variable_name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			line.BookingID, line.ServiceID, line.ServiceName,
			line.VariableID, line.VariableName, line.Quantity, line.UnitPrice,
		).Scan(&line.ID); err != nil {
			return fmt.Errorf("store: insert booking service: %w", err)
		}
		line.Price = float64(line.Quantity) * line.UnitPrice
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit create booking tx: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking with its line items.
func (s *BookingStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	)

	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get booking: %w", err)
	}

	if err := s.attachLines(ctx, []*models.Booking{booking}); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListFilter narrows the admin booking listing. Zero values mean "no filter".
type ListFilter struct {
	UserID   int64
	Status   models.BookingStatus
	FromDate string
	ToDate   string
	Limit    int
	Offset   int
}

// ListBookings returns bookings matching the filter, newest first, with line
// items attached.
func (s *BookingStore) ListBookings(ctx context.Context, filter ListFilter) ([]models.Booking, error) {
	if filter.Limit <= 0 || filter.Limit > defaultPageSize {
		filter.Limit = defaultPageSize
	}

	builder := psql.Select(
		"id", "user_id", "full_name", "email", "phone", "address", "city",
		"postcode", "frequency", "preferred_date", "preferred_time",
		"scheduled_date", "scheduled_time", "staff_id", "status",
		"estimated_price", "special_instructions", "created_at", "updated_at",
	).From("bookings")

	if filter.UserID != 0 {
		builder = builder.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.FromDate != "" {
		builder = builder.Where(squirrel.GtOrEq{"scheduled_date": filter.FromDate})
	}
	if filter.ToDate != "" {
		builder = builder.Where(squirrel.LtOrEq{"scheduled_date": filter.ToDate})
	}

	query, args, err := builder.
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build booking list query: %w", err)
	}

	return s.queryBookings(ctx, query, args...)
}

// ListUpcoming returns bookings scheduled on or after the given day
// (YYYY-MM-DD), soonest first.
func (s *BookingStore) ListUpcoming(ctx context.Context, fromDate string, limit int) ([]models.Booking, error) {
	if limit <= 0 || limit > defaultPageSize {
		limit = defaultPageSize
	}

	return s.queryBookings(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE scheduled_date >= $1 AND status IN ('confirmed', 'scheduled')
		 ORDER BY scheduled_date ASC, scheduled_time ASC
		 LIMIT $2`,
		fromDate, limit,
	)
}

func (s *BookingStore) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	var refs []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan booking: %w", err)
		}
		bookings = append(bookings, *booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate bookings: %w", err)
	}

	for i := range bookings {
		refs = append(refs, &bookings[i])
	}
	if err := s.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return bookings, nil
}

// attachLines loads booking_services rows for the given bookings in one
// query.
func (s *BookingStore) attachLines(ctx context.Context, bookings []*models.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(bookings))
	byID := make(map[int64]*models.Booking, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
		byID[b.ID] = b
		b.Services = nil
	}

	query, args, err := psql.Select(
		"id", "booking_id", "service_id", "service_name",
		"variable_id", "variable_name", "quantity", "unit_price",
	).From("booking_services").
		Where(squirrel.Eq{"booking_id": ids}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build booking lines query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: list booking services: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line models.BookingService
		if err := rows.Scan(
			&line.ID, &line.BookingID, &line.ServiceID, &line.ServiceName,
			&line.VariableID, &line.VariableName, &line.Quantity, &line.UnitPrice,
		); err != nil {
			return fmt.Errorf("store: scan booking service: %w", err)
		}
		line.Price = float64(line.Quantity) * line.UnitPrice
		if parent, ok := byID[line.BookingID]; ok {
			parent.Services = append(parent.Services, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate booking services: %w", err)
	}
	return nil
}

// UpdateContactDetails updates the customer-editable fields of a booking.
func (s *BookingStore) UpdateContactDetails(ctx context.Context, id int64, fullName, phone, address, city, postcode string, specialInstructions *string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE bookings
		 SET full_name = $1, phone = $2, address = $3, city = $4, postcode = $5,
		     special_instructions = $6, updated_at = now()
		 WHERE id = $7`,
		fullName, phone, address, city, postcode, specialInstructions, id,
	)
	if err != nil {
		return fmt.Errorf("store: update booking contact details: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignStaff sets the staff member on a booking and moves it to confirmed.
func (s *BookingStore) AssignStaff(ctx context.Context, id, staffID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET staff_id = $1, status = $2, updated_at = now() WHERE id = $3`,
		staffID, models.BookingConfirmed, id,
	)
	if err != nil {
		return fmt.Errorf("store: assign staff: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Schedule sets the visit date/time (and optionally staff) on a booking and
// moves it to scheduled.
func (s *BookingStore) Schedule(ctx context.Context, id int64, date, timeOfDay string, staffID *int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE bookings
		 SET scheduled_date = $1, scheduled_time = $2,
		     staff_id = COALESCE($3, staff_id), status = $4, updated_at = now()
		 WHERE id = $5`,
		date, timeOfDay, staffID, models.BookingScheduled, id,
	)
	if err != nil {
		return fmt.Errorf("store: schedule booking: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves a booking to the given status.
func (s *BookingStore) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("store: update booking status: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
