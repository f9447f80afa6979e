package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"riskguard/internal/models"
)

// Ошибки репозитория событий
var (
	ErrEventNotFound = errors.New("risk event not found")
)

// EventRepository - работа с таблицей risk_events
//
// Таблица append-only: события создаются и читаются, но не удаляются
// (ретеншн - забота внешней политики). Единственная мутация -
// AppendDetails, дописывающая исход исполнения к уже записанной детекции.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository создает новый экземпляр репозитория
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create создает запись о событии
func (r *EventRepository) Create(event *models.RiskEvent) error {
	query := `
		INSERT INTO risk_events (owner_id, limit_id, event_type,
			exposure_percent, threshold_percent, account_balance,
			affected_position_ids, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Упорядоченный список позиций хранится как JSON
	var positionsJSON []byte
	if len(event.AffectedPositionIDs) > 0 {
		data, err := json.Marshal(event.AffectedPositionIDs)
		if err != nil {
			return err
		}
		positionsJSON = data
	}

	err := r.db.QueryRow(
		query,
		event.OwnerID,
		event.LimitID,
		event.EventType,
		event.ExposurePercent,
		event.ThresholdPercent,
		event.AccountBalance,
		positionsJSON,
		event.Details,
		event.Timestamp,
	).Scan(&event.ID)

	if err != nil {
		return err
	}

	return nil
}

// AppendDetails дописывает текст к details существующего события
func (r *EventRepository) AppendDetails(eventID int, details string) error {
	query := `UPDATE risk_events SET details = details || $1 WHERE id = $2`

	result, err := r.db.Exec(query, details, eventID)
	if err != nil {
		return err
	}
	return ensureAffected(result, ErrEventNotFound)
}

// GetByID возвращает событие по ID
func (r *EventRepository) GetByID(id int) (*models.RiskEvent, error) {
	query := `
		SELECT id, owner_id, limit_id, event_type, exposure_percent,
			threshold_percent, account_balance, affected_position_ids, details, timestamp
		FROM risk_events WHERE id = $1`

	event := &models.RiskEvent{}
	var positionsJSON []byte

	err := r.db.QueryRow(query, id).Scan(
		&event.ID,
		&event.OwnerID,
		&event.LimitID,
		&event.EventType,
		&event.ExposurePercent,
		&event.ThresholdPercent,
		&event.AccountBalance,
		&positionsJSON,
		&event.Details,
		&event.Timestamp,
	)
	if err == sql.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := unmarshalPositions(positionsJSON, event); err != nil {
		return nil, err
	}

	return event, nil
}

// GetByOwner возвращает события владельца, новые сверху, с пагинацией
func (r *EventRepository) GetByOwner(ownerID, limit, offset int) ([]*models.RiskEvent, error) {
	query := `
		SELECT id, owner_id, limit_id, event_type, exposure_percent,
			threshold_percent, account_balance, affected_position_ids, details, timestamp
		FROM risk_events
		WHERE owner_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// GetByLimit возвращает события одного лимита, новые сверху
func (r *EventRepository) GetByLimit(limitID, limit, offset int) ([]*models.RiskEvent, error) {
	query := `
		SELECT id, owner_id, limit_id, event_type, exposure_percent,
			threshold_percent, account_balance, affected_position_ids, details, timestamp
		FROM risk_events
		WHERE limit_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, limitID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// HasEventSince сообщает, было ли у лимита событие данного типа после отметки
//
// Используется для проверки "этот пробой уже обработан в этом цикле".
func (r *EventRepository) HasEventSince(limitID int, eventType string, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM risk_events
			WHERE limit_id = $1 AND event_type = $2 AND timestamp >= $3
		)`

	var exists bool
	err := r.db.QueryRow(query, limitID, eventType, since).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CountByOwner возвращает количество событий владельца
func (r *EventRepository) CountByOwner(ownerID int) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM risk_events WHERE owner_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// collectEvents читает все строки результата
func collectEvents(rows *sql.Rows) ([]*models.RiskEvent, error) {
	events := make([]*models.RiskEvent, 0)
	for rows.Next() {
		event := &models.RiskEvent{}
		var positionsJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.OwnerID,
			&event.LimitID,
			&event.EventType,
			&event.ExposurePercent,
			&event.ThresholdPercent,
			&event.AccountBalance,
			&positionsJSON,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, err
		}

		if err := unmarshalPositions(positionsJSON, event); err != nil {
			return nil, err
		}

		events = append(events, event)
	}
	return events, rows.Err()
}

// unmarshalPositions восстанавливает список позиций из JSON
func unmarshalPositions(data []byte, event *models.RiskEvent) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &event.AffectedPositionIDs)
}
