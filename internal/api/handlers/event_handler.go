package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"riskguard/internal/models"
	"riskguard/internal/service"
)

// EventHandler отвечает за выдачу журнала аудита движка лимитов
//
// Endpoints:
// - GET /api/v1/events - события владельца (новые первыми)
// - GET /api/v1/events/{id} - одно событие
// - GET /api/v1/limits/{id}/events - история одного лимита
//
// Журнал append-only; записи создаются движком, API только читает.
type EventHandler struct {
	eventService service.EventServiceInterface
}

// NewEventHandler создает новый EventHandler с внедрением зависимости
func NewEventHandler(eventService service.EventServiceInterface) *EventHandler {
	return &EventHandler{
		eventService: eventService,
	}
}

// EventDTO представляет событие аудита в API
type EventDTO struct {
	ID                  int     `json:"id"`
	LimitID             int     `json:"limit_id,omitempty"`
	EventType           string  `json:"event_type"`
	ExposurePercent     float64 `json:"exposure_percent"`
	ThresholdPercent    float64 `json:"threshold_percent"`
	AccountBalance      float64 `json:"account_balance"`
	AffectedPositionIDs []int64 `json:"affected_position_ids,omitempty"`
	Details             string  `json:"details,omitempty"`
	Timestamp           string  `json:"timestamp"`
}

// GetEventsResponse представляет ответ списка событий
type GetEventsResponse struct {
	Events []EventDTO `json:"events"`
	Total  int        `json:"total"`
}

// GetEvents возвращает события владельца
//
// GET /api/v1/events
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 50, максимум 500)
// - offset (int): смещение для пагинации
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка сервера
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	limit, offset := parsePagination(r, 50)

	events, err := h.eventService.GetEvents(ownerID, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get events: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetEventsResponse{
		Events: toEventDTOs(events),
		Total:  len(events),
	})
}

// GetEvent возвращает одно событие владельца
//
// GET /api/v1/events/{id}
//
// HTTP коды:
// - 200 OK: успешно
// - 404 Not Found: событие не существует или принадлежит другому владельцу
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	event, err := h.eventService.GetEvent(ownerID, id)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			respondWithError(w, http.StatusNotFound, "Risk event not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get event: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, toEventDTO(event))
}

// GetLimitHistory возвращает события одного лимита владельца
//
// GET /api/v1/limits/{id}/events
//
// HTTP коды:
// - 200 OK: успешно (пустой список, если событий нет)
// - 500 Internal Server Error: ошибка сервера
func (h *EventHandler) GetLimitHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	limitID, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit ID")
		return
	}

	limit, offset := parsePagination(r, 50)

	events, err := h.eventService.GetLimitHistory(ownerID, limitID, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get limit history: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetEventsResponse{
		Events: toEventDTOs(events),
		Total:  len(events),
	})
}

// toEventDTO преобразует модель события в DTO
func toEventDTO(event *models.RiskEvent) EventDTO {
	return EventDTO{
		ID:                  event.ID,
		LimitID:             event.LimitID,
		EventType:           event.EventType,
		ExposurePercent:     event.ExposurePercent,
		ThresholdPercent:    event.ThresholdPercent,
		AccountBalance:      event.AccountBalance,
		AffectedPositionIDs: event.AffectedPositionIDs,
		Details:             event.Details,
		Timestamp:           event.Timestamp.Format(time.RFC3339),
	}
}

// toEventDTOs преобразует список событий в DTO
func toEventDTOs(events []*models.RiskEvent) []EventDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, event := range events {
		dtos = append(dtos, toEventDTO(event))
	}
	return dtos
}
