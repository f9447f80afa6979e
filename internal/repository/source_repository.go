package repository

import (
	"database/sql"
	"errors"
	"time"

	"riskguard/internal/models"
)

// Ошибки репозитория источников
var (
	ErrSourceNotFound = errors.New("signal source not found")
)

// SourceRepository - работа с таблицей signal_sources
type SourceRepository struct {
	db *sql.DB
}

// NewSourceRepository создает новый экземпляр репозитория
func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Create создает запись об источнике
func (r *SourceRepository) Create(source *models.SignalSource) error {
	query := `
		INSERT INTO signal_sources (owner_id, name, is_active, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	source.CreatedAt = time.Now()

	err := r.db.QueryRow(
		query,
		source.OwnerID,
		source.Name,
		source.IsActive,
		source.CreatedAt,
	).Scan(&source.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает источник по ID
func (r *SourceRepository) GetByID(id int) (*models.SignalSource, error) {
	query := `
		SELECT id, owner_id, name, is_active, disabled_reason, disabled_at, created_at
		FROM signal_sources WHERE id = $1`

	source := &models.SignalSource{}
	err := r.db.QueryRow(query, id).Scan(
		&source.ID,
		&source.OwnerID,
		&source.Name,
		&source.IsActive,
		&source.DisabledReason,
		&source.DisabledAt,
		&source.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}

	return source, nil
}

// GetByOwner возвращает источники владельца
func (r *SourceRepository) GetByOwner(ownerID int) ([]*models.SignalSource, error) {
	query := `
		SELECT id, owner_id, name, is_active, disabled_reason, disabled_at, created_at
		FROM signal_sources
		WHERE owner_id = $1
		ORDER BY id`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]*models.SignalSource, 0)
	for rows.Next() {
		source := &models.SignalSource{}
		err := rows.Scan(
			&source.ID,
			&source.OwnerID,
			&source.Name,
			&source.IsActive,
			&source.DisabledReason,
			&source.DisabledAt,
			&source.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// Disable деактивирует источник с указанием причины
func (r *SourceRepository) Disable(id int, reason string) error {
	query := `
		UPDATE signal_sources
		SET is_active = false, disabled_reason = $1, disabled_at = $2
		WHERE id = $3`

	result, err := r.db.Exec(query, reason, time.Now(), id)
	if err != nil {
		return err
	}
	return ensureAffected(result, ErrSourceNotFound)
}

// Enable активирует источник и очищает причину отключения
func (r *SourceRepository) Enable(id int) error {
	query := `
		UPDATE signal_sources
		SET is_active = true, disabled_reason = NULL, disabled_at = NULL
		WHERE id = $1`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return err
	}
	return ensureAffected(result, ErrSourceNotFound)
}
