package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/Corewavemedia/Dustout-sub001/internal/models"
)

func userRows(id int64, email, role string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "username", "email", "fullname", "phone", "address", "role", "verified", "created_at", "updated_at",
	}).AddRow(id, email, email, "Test User", "", "", role, true, now, now)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE LOWER\\(email\\)").
		WithArgs("missing@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	s, _ := New(db)
	_, err = s.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureUserCreatesOnFirstSight(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE LOWER\\(email\\)").
		WithArgs("new@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("new@example.com", "new@example.com", "New User", models.RoleUser).
		WillReturnRows(userRows(7, "new@example.com", models.RoleUser))

	s, _ := New(db)
	user, err := s.EnsureUser(context.Background(), "new@example.com", "New User")
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if user.ID != 7 || user.Role != models.RoleUser {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureUserReturnsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE LOWER\\(email\\)").
		WithArgs("known@example.com").
		WillReturnRows(userRows(3, "known@example.com", models.RoleAdmin))

	s, _ := New(db)
	user, err := s.EnsureUser(context.Background(), "known@example.com", "ignored")
	if err != nil {
		t.Fatalf("EnsureUser returned error: %v", err)
	}
	if user.ID != 3 || !user.IsAdmin() {
		t.Fatalf("unexpected user: %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateAdminDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("dupe", "dupe@example.com", "Dupe", models.RoleAdmin).
		WillReturnError(&pq.Error{Code: "23505"})

	s, _ := New(db)
	_, err = s.CreateAdmin(context.Background(), "dupe", "dupe@example.com", "Dupe")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserRoleNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET role").
		WithArgs(models.RoleAdmin, int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, _ := New(db)
	err = s.UpdateUserRole(context.Background(), 99, models.RoleAdmin)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
