package repository

import (
	"database/sql"
	"errors"
	"time"

	"riskguard/internal/models"
)

// Ошибки репозитория лимитов
var (
	ErrLimitNotFound = errors.New("risk limit not found")
)

// LimitRepository - работа с таблицей risk_limits
type LimitRepository struct {
	db *sql.DB
}

// NewLimitRepository создает новый экземпляр репозитория
func NewLimitRepository(db *sql.DB) *LimitRepository {
	return &LimitRepository{db: db}
}

const limitColumns = `id, owner_id, scope, provider_id, symbol,
		max_gain_percent, max_loss_percent, max_drawdown_percent,
		is_active, auto_disable_source, notify_only,
		last_triggered_at, last_trigger_reason, created_at, updated_at`

// Create создает запись о лимите
func (r *LimitRepository) Create(limit *models.RiskLimit) error {
	query := `
		INSERT INTO risk_limits (owner_id, scope, provider_id, symbol,
			max_gain_percent, max_loss_percent, max_drawdown_percent,
			is_active, auto_disable_source, notify_only, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	now := time.Now()
	limit.CreatedAt = now
	limit.UpdatedAt = now

	err := r.db.QueryRow(
		query,
		limit.OwnerID,
		limit.Scope,
		limit.ProviderID,
		nullableString(limit.Symbol),
		limit.MaxGainPercent,
		limit.MaxLossPercent,
		limit.MaxDrawdownPercent,
		limit.IsActive,
		limit.AutoDisableSource,
		limit.NotifyOnly,
		limit.CreatedAt,
		limit.UpdatedAt,
	).Scan(&limit.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает лимит по ID
func (r *LimitRepository) GetByID(id int) (*models.RiskLimit, error) {
	query := `SELECT ` + limitColumns + ` FROM risk_limits WHERE id = $1`

	limit := &models.RiskLimit{}
	err := r.scanLimit(r.db.QueryRow(query, id), limit)
	if err == sql.ErrNoRows {
		return nil, ErrLimitNotFound
	}
	if err != nil {
		return nil, err
	}

	return limit, nil
}

// GetByOwnerAndID возвращает лимит, принадлежащий владельцу
//
// Используется на границе API: чужие лимиты неотличимы от несуществующих.
func (r *LimitRepository) GetByOwnerAndID(ownerID, id int) (*models.RiskLimit, error) {
	query := `SELECT ` + limitColumns + ` FROM risk_limits WHERE id = $1 AND owner_id = $2`

	limit := &models.RiskLimit{}
	err := r.scanLimit(r.db.QueryRow(query, id, ownerID), limit)
	if err == sql.ErrNoRows {
		return nil, ErrLimitNotFound
	}
	if err != nil {
		return nil, err
	}

	return limit, nil
}

// GetByOwner возвращает лимиты владельца с пагинацией
func (r *LimitRepository) GetByOwner(ownerID, limit, offset int) ([]*models.RiskLimit, error) {
	query := `SELECT ` + limitColumns + `
		FROM risk_limits
		WHERE owner_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectLimits(rows)
}

// GetActive возвращает все активные лимиты всех владельцев
//
// Основной запрос цикла мониторинга.
func (r *LimitRepository) GetActive() ([]*models.RiskLimit, error) {
	query := `SELECT ` + limitColumns + `
		FROM risk_limits
		WHERE is_active = true
		ORDER BY owner_id, id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectLimits(rows)
}

// GetActiveByOwner возвращает активные лимиты одного владельца
//
// Используется одноразовой проверкой.
func (r *LimitRepository) GetActiveByOwner(ownerID int) ([]*models.RiskLimit, error) {
	query := `SELECT ` + limitColumns + `
		FROM risk_limits
		WHERE owner_id = $1 AND is_active = true
		ORDER BY id`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectLimits(rows)
}

// GetTriggered возвращает лимиты с необработанным пробоем по всем владельцам
//
// Используется админским обзором "кто сейчас в пробое".
func (r *LimitRepository) GetTriggered() ([]*models.RiskLimit, error) {
	query := `SELECT ` + limitColumns + `
		FROM risk_limits
		WHERE last_triggered_at IS NOT NULL
		ORDER BY last_triggered_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectLimits(rows)
}

// Update обновляет определение лимита
func (r *LimitRepository) Update(limit *models.RiskLimit) error {
	query := `
		UPDATE risk_limits
		SET scope = $1, provider_id = $2, symbol = $3,
			max_gain_percent = $4, max_loss_percent = $5, max_drawdown_percent = $6,
			is_active = $7, auto_disable_source = $8, notify_only = $9, updated_at = $10
		WHERE id = $11`

	limit.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		query,
		limit.Scope,
		limit.ProviderID,
		nullableString(limit.Symbol),
		limit.MaxGainPercent,
		limit.MaxLossPercent,
		limit.MaxDrawdownPercent,
		limit.IsActive,
		limit.AutoDisableSource,
		limit.NotifyOnly,
		limit.UpdatedAt,
		limit.ID,
	)
	if err != nil {
		return err
	}

	return ensureAffected(result, ErrLimitNotFound)
}

// Delete удаляет лимит
func (r *LimitRepository) Delete(id int) error {
	result, err := r.db.Exec(`DELETE FROM risk_limits WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return ensureAffected(result, ErrLimitNotFound)
}

// MarkTriggered устанавливает поля срабатывания лимита
func (r *LimitRepository) MarkTriggered(id int, reason string, at time.Time) error {
	query := `
		UPDATE risk_limits
		SET last_triggered_at = $1, last_trigger_reason = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Exec(query, at, reason, time.Now(), id)
	if err != nil {
		return err
	}
	return ensureAffected(result, ErrLimitNotFound)
}

// ClearTrigger очищает поля срабатывания (условие пробоя ушло)
func (r *LimitRepository) ClearTrigger(id int) error {
	query := `
		UPDATE risk_limits
		SET last_triggered_at = NULL, last_trigger_reason = NULL, updated_at = $1
		WHERE id = $2`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return err
	}
	return ensureAffected(result, ErrLimitNotFound)
}

// Reset перевзводит лимит: активирует и очищает поля срабатывания
//
// Используется только административным сбросом.
func (r *LimitRepository) Reset(id int) error {
	query := `
		UPDATE risk_limits
		SET is_active = true, last_triggered_at = NULL, last_trigger_reason = NULL, updated_at = $1
		WHERE id = $2`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return err
	}
	return ensureAffected(result, ErrLimitNotFound)
}

// CountByOwner возвращает количество лимитов владельца
func (r *LimitRepository) CountByOwner(ownerID int) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM risk_limits WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// scanLimit читает одну строку в модель
func (r *LimitRepository) scanLimit(row *sql.Row, limit *models.RiskLimit) error {
	var symbol sql.NullString
	err := row.Scan(
		&limit.ID,
		&limit.OwnerID,
		&limit.Scope,
		&limit.ProviderID,
		&symbol,
		&limit.MaxGainPercent,
		&limit.MaxLossPercent,
		&limit.MaxDrawdownPercent,
		&limit.IsActive,
		&limit.AutoDisableSource,
		&limit.NotifyOnly,
		&limit.LastTriggeredAt,
		&limit.LastTriggerReason,
		&limit.CreatedAt,
		&limit.UpdatedAt,
	)
	if err != nil {
		return err
	}
	limit.Symbol = symbol.String
	return nil
}

// collectLimits читает все строки результата
func (r *LimitRepository) collectLimits(rows *sql.Rows) ([]*models.RiskLimit, error) {
	limits := make([]*models.RiskLimit, 0)
	for rows.Next() {
		limit := &models.RiskLimit{}
		var symbol sql.NullString
		err := rows.Scan(
			&limit.ID,
			&limit.OwnerID,
			&limit.Scope,
			&limit.ProviderID,
			&symbol,
			&limit.MaxGainPercent,
			&limit.MaxLossPercent,
			&limit.MaxDrawdownPercent,
			&limit.IsActive,
			&limit.AutoDisableSource,
			&limit.NotifyOnly,
			&limit.LastTriggeredAt,
			&limit.LastTriggerReason,
			&limit.CreatedAt,
			&limit.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		limit.Symbol = symbol.String
		limits = append(limits, limit)
	}
	return limits, rows.Err()
}

// nullableString конвертирует пустую строку в NULL
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ensureAffected возвращает notFound если UPDATE/DELETE не задел ни одной строки
func ensureAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
