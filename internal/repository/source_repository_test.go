package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"riskguard/internal/models"
)

// ============================================================
// SourceRepository Tests
// ============================================================

var sourceRowColumns = []string{
	"id", "owner_id", "name", "is_active", "disabled_reason", "disabled_at", "created_at",
}

func TestSourceRepositoryCreate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO signal_sources`).
		WithArgs(1, "alpha-signals", true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	repo := NewSourceRepository(db)
	source := &models.SignalSource{OwnerID: 1, Name: "alpha-signals", IsActive: true}

	if err := repo.Create(source); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if source.ID != 5 {
		t.Errorf("expected ID 5, got %d", source.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSourceRepositoryGetByOwner(t *testing.T) {
	now := time.Now()
	reason := "disabled by risk limit #3"

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(sourceRowColumns).
		AddRow(1, 1, "alpha-signals", true, nil, nil, now).
		AddRow(2, 1, "beta-signals", false, reason, now, now)
	mock.ExpectQuery(`SELECT .+ FROM signal_sources WHERE owner_id = \$1 ORDER BY id`).
		WithArgs(1).
		WillReturnRows(rows)

	repo := NewSourceRepository(db)
	sources, err := repo.GetByOwner(1)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if sources[1].DisabledReason == nil || *sources[1].DisabledReason != reason {
		t.Errorf("disabled reason not restored: %v", sources[1].DisabledReason)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSourceRepositoryDisable(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		expectError error
	}{
		{"success", 1, nil},
		{"not found", 0, ErrSourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("failed to create mock: %v", err)
			}
			defer db.Close()

			mock.ExpectExec(`UPDATE signal_sources SET is_active = false`).
				WithArgs("disabled by risk limit #3", sqlmock.AnyArg(), 1).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			repo := NewSourceRepository(db)
			err = repo.Disable(1, "disabled by risk limit #3")

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestSourceRepositoryEnable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE signal_sources SET is_active = true, disabled_reason = NULL`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewSourceRepository(db)
	if err := repo.Enable(1); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
