package models

import "time"

// RiskEvent представляет запись аудита работы движка лимитов
//
// События append-only: создаются один раз и никогда не изменяются.
// Детекция пробоя и фактическое исполнение логируются отдельными событиями,
// поэтому по журналу видно пробои, по которым закрытие не удалось.
type RiskEvent struct {
	ID                  int       `json:"id" db:"id"`
	OwnerID             int       `json:"owner_id" db:"owner_id"`
	LimitID             int       `json:"limit_id" db:"limit_id"` // 0 для событий источника без лимита
	EventType           string    `json:"event_type" db:"event_type"`
	ExposurePercent     float64   `json:"exposure_percent" db:"exposure_percent"`
	ThresholdPercent    float64   `json:"threshold_percent" db:"threshold_percent"`
	AccountBalance      float64   `json:"account_balance" db:"account_balance"`
	AffectedPositionIDs []int64   `json:"affected_position_ids,omitempty" db:"affected_position_ids"` // JSON в БД, порядок сохраняется
	Details             string    `json:"details,omitempty" db:"details"`
	Timestamp           time.Time `json:"timestamp" db:"timestamp"`
}

// Типы событий
const (
	EventBreachDetected  = "breach_detected"  // порог превышен
	EventPositionsClosed = "positions_closed" // позиции закрыты платформой
	EventSourceDisabled  = "source_disabled"  // источник сигналов отключен
	EventAdminReset      = "admin_reset"      // лимит перевзведён администратором
)

// ValidEventType проверяет, является ли тип события допустимым
func ValidEventType(eventType string) bool {
	switch eventType {
	case EventBreachDetected, EventPositionsClosed, EventSourceDisabled, EventAdminReset:
		return true
	}
	return false
}
