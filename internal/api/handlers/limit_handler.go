package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"riskguard/internal/models"
	"riskguard/internal/service"
)

// LimitHandler отвечает за управление лимитами риска владельца
//
// Endpoints:
// - GET /api/v1/limits - список лимитов владельца
// - POST /api/v1/limits - создание лимита
// - GET /api/v1/limits/{id} - один лимит
// - PATCH /api/v1/limits/{id} - частичное обновление
// - DELETE /api/v1/limits/{id} - удаление
//
// Владелец берется из контекста запроса (middleware OwnerAuth);
// чужие лимиты для владельца неотличимы от несуществующих (404).
type LimitHandler struct {
	limitService service.LimitServiceInterface
}

// NewLimitHandler создает новый LimitHandler с внедрением зависимости
func NewLimitHandler(limitService service.LimitServiceInterface) *LimitHandler {
	return &LimitHandler{
		limitService: limitService,
	}
}

// CreateLimitRequest представляет запрос создания лимита
type CreateLimitRequest struct {
	Scope              string   `json:"scope"`
	ProviderID         *int     `json:"provider_id,omitempty"`
	Symbol             string   `json:"symbol,omitempty"`
	MaxGainPercent     *float64 `json:"max_gain_percent,omitempty"`
	MaxLossPercent     *float64 `json:"max_loss_percent,omitempty"`
	MaxDrawdownPercent *float64 `json:"max_drawdown_percent,omitempty"`
	IsActive           *bool    `json:"is_active,omitempty"`
	AutoDisableSource  bool     `json:"auto_disable_source,omitempty"`
	NotifyOnly         bool     `json:"notify_only,omitempty"`
}

// UpdateLimitRequest представляет запрос частичного обновления лимита
//
// nil поле означает "не менять".
type UpdateLimitRequest struct {
	Scope              *string  `json:"scope,omitempty"`
	ProviderID         *int     `json:"provider_id,omitempty"`
	Symbol             *string  `json:"symbol,omitempty"`
	MaxGainPercent     *float64 `json:"max_gain_percent,omitempty"`
	MaxLossPercent     *float64 `json:"max_loss_percent,omitempty"`
	MaxDrawdownPercent *float64 `json:"max_drawdown_percent,omitempty"`
	IsActive           *bool    `json:"is_active,omitempty"`
	AutoDisableSource  *bool    `json:"auto_disable_source,omitempty"`
	NotifyOnly         *bool    `json:"notify_only,omitempty"`
}

// GetLimitsResponse представляет ответ списка лимитов
type GetLimitsResponse struct {
	Limits []*models.RiskLimit `json:"limits"`
	Total  int                 `json:"total"`
}

// GetLimits возвращает лимиты владельца
//
// GET /api/v1/limits
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 50, максимум 200)
// - offset (int): смещение для пагинации
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка сервера
func (h *LimitHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	limit, offset := parsePagination(r, 50)

	limits, err := h.limitService.GetLimits(ownerID, limit, offset)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get limits: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetLimitsResponse{
		Limits: limits,
		Total:  len(limits),
	})
}

// GetLimit возвращает один лимит владельца
//
// GET /api/v1/limits/{id}
//
// HTTP коды:
// - 200 OK: успешно
// - 404 Not Found: лимит не существует или принадлежит другому владельцу
func (h *LimitHandler) GetLimit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit ID")
		return
	}

	limit, err := h.limitService.GetLimit(ownerID, id)
	if err != nil {
		h.respondLimitError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, limit)
}

// CreateLimit создает новый лимит
//
// POST /api/v1/limits
//
// HTTP коды:
// - 201 Created: лимит создан
// - 400 Bad Request: невалидное определение лимита
// - 500 Internal Server Error: ошибка сервера
func (h *LimitHandler) CreateLimit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req CreateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	// Новый лимит активен, если явно не сказано обратное
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	limit := &models.RiskLimit{
		Scope:              req.Scope,
		ProviderID:         req.ProviderID,
		Symbol:             req.Symbol,
		MaxGainPercent:     req.MaxGainPercent,
		MaxLossPercent:     req.MaxLossPercent,
		MaxDrawdownPercent: req.MaxDrawdownPercent,
		IsActive:           isActive,
		AutoDisableSource:  req.AutoDisableSource,
		NotifyOnly:         req.NotifyOnly,
	}

	if err := h.limitService.CreateLimit(ownerID, limit); err != nil {
		h.respondLimitError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, limit)
}

// UpdateLimit частично обновляет лимит
//
// PATCH /api/v1/limits/{id}
//
// HTTP коды:
// - 200 OK: лимит обновлен
// - 400 Bad Request: невалидное определение после применения изменений
// - 404 Not Found: лимит не существует или принадлежит другому владельцу
func (h *LimitHandler) UpdateLimit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit ID")
		return
	}

	var req UpdateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	limit, err := h.limitService.UpdateLimit(ownerID, id, service.UpdateLimitParams{
		Scope:              req.Scope,
		ProviderID:         req.ProviderID,
		Symbol:             req.Symbol,
		MaxGainPercent:     req.MaxGainPercent,
		MaxLossPercent:     req.MaxLossPercent,
		MaxDrawdownPercent: req.MaxDrawdownPercent,
		IsActive:           req.IsActive,
		AutoDisableSource:  req.AutoDisableSource,
		NotifyOnly:         req.NotifyOnly,
	})
	if err != nil {
		h.respondLimitError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, limit)
}

// DeleteLimit удаляет лимит
//
// DELETE /api/v1/limits/{id}
//
// HTTP коды:
// - 204 No Content: лимит удален
// - 404 Not Found: лимит не существует или принадлежит другому владельцу
func (h *LimitHandler) DeleteLimit(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit ID")
		return
	}

	if err := h.limitService.DeleteLimit(ownerID, id); err != nil {
		h.respondLimitError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondLimitError мапит ошибки сервиса лимитов на HTTP коды
func (h *LimitHandler) respondLimitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrLimitNotFound):
		respondWithError(w, http.StatusNotFound, "Risk limit not found")
	case errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, service.ErrProviderRequired),
		errors.Is(err, service.ErrSymbolRequired),
		errors.Is(err, service.ErrScopeFieldConflict),
		errors.Is(err, service.ErrNoThreshold),
		errors.Is(err, service.ErrInvalidPercent):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error: "+err.Error())
	}
}
