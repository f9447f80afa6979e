package websocket

import (
	"time"

	"riskguard/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeRiskEvent - новая запись в журнале аудита
	// Отправляется движком при breach_detected, positions_closed, source_disabled
	MessageTypeRiskEvent MessageType = "riskEvent"

	// MessageTypeBreachUpdate - изменение состояния пробоя лимита
	// Отправляется при срабатывании и перевзводе лимита
	MessageTypeBreachUpdate MessageType = "breachUpdate"

	// MessageTypeNotification - уведомление владельцу
	MessageTypeNotification MessageType = "notification"

	// MessageTypeCheckResult - результат одноразовой проверки лимитов
	// Отправляется после POST /api/v1/check, чтобы дашборд видел проверки ботов
	MessageTypeCheckResult MessageType = "checkResult"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// RiskEventMessage - сообщение о новой записи аудита
type RiskEventMessage struct {
	BaseMessage
	Data *RiskEventData `json:"data"`
}

// RiskEventData - данные записи аудита
type RiskEventData struct {
	ID                  int     `json:"id"`
	OwnerID             int     `json:"owner_id"`
	LimitID             int     `json:"limit_id,omitempty"`
	EventType           string  `json:"event_type"`
	ExposurePercent     float64 `json:"exposure_percent"`
	ThresholdPercent    float64 `json:"threshold_percent"`
	AffectedPositionIDs []int64 `json:"affected_position_ids,omitempty"`
	Details             string  `json:"details,omitempty"`
}

// BreachUpdateMessage - сообщение об изменении состояния пробоя
//
// triggered=true при срабатывании, triggered=false при перевзводе
// (автоматическом или административном).
type BreachUpdateMessage struct {
	BaseMessage
	OwnerID   int    `json:"owner_id"`
	LimitID   int    `json:"limit_id"`
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason,omitempty"`
}

// NotificationMessage - сообщение с уведомлением владельцу
type NotificationMessage struct {
	BaseMessage
	Data interface{} `json:"data"`
}

// CheckResultMessage - сообщение с результатом одноразовой проверки
type CheckResultMessage struct {
	BaseMessage
	OwnerID int         `json:"owner_id"`
	Data    interface{} `json:"data"`
}

// NewRiskEventMessage создает сообщение о записи аудита
func NewRiskEventMessage(event *models.RiskEvent) *RiskEventMessage {
	return &RiskEventMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeRiskEvent,
			Timestamp: time.Now(),
		},
		Data: &RiskEventData{
			ID:                  event.ID,
			OwnerID:             event.OwnerID,
			LimitID:             event.LimitID,
			EventType:           event.EventType,
			ExposurePercent:     event.ExposurePercent,
			ThresholdPercent:    event.ThresholdPercent,
			AffectedPositionIDs: event.AffectedPositionIDs,
			Details:             event.Details,
		},
	}
}

// NewBreachUpdateMessage создает сообщение об изменении состояния пробоя
func NewBreachUpdateMessage(ownerID, limitID int, triggered bool, reason string) *BreachUpdateMessage {
	return &BreachUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeBreachUpdate,
			Timestamp: time.Now(),
		},
		OwnerID:   ownerID,
		LimitID:   limitID,
		Triggered: triggered,
		Reason:    reason,
	}
}
