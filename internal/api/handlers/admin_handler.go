package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"riskguard/internal/api/middleware"
	"riskguard/internal/models"
	"riskguard/internal/service"
)

// AdminHandler отвечает за привилегированные операции движка лимитов
//
// Endpoints:
// - POST /api/v1/admin/owners/{owner_id}/limits/{id}/reset - перевзвод лимита
// - GET /api/v1/admin/breaches - текущие пробои по всем владельцам
//
// Все endpoints закрыты middleware AdminAuth (X-Admin-Token).
// Имя администратора из X-Admin-Name попадает в журнал аудита.
type AdminHandler struct {
	limitService service.LimitServiceInterface
	stream       BreachStreamer
}

// BreachStreamer доставляет изменения состояния пробоя клиентам дашборда
type BreachStreamer interface {
	BroadcastBreachUpdate(ownerID, limitID int, triggered bool, reason string)
}

// NewAdminHandler создает новый AdminHandler с внедрением зависимостей
//
// stream может быть nil: перевзвод работает и без WebSocket hub.
func NewAdminHandler(limitService service.LimitServiceInterface, stream BreachStreamer) *AdminHandler {
	return &AdminHandler{
		limitService: limitService,
		stream:       stream,
	}
}

// ResetLimitRequest представляет запрос перевзвода лимита
type ResetLimitRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ResetLimit перевзводит сработавший лимит
//
// POST /api/v1/admin/owners/{owner_id}/limits/{id}/reset
//
// Активирует лимит, очищает поля срабатывания и пишет admin_reset
// событие. Сброс несработавшего лимита - успех: событие аудита
// пишется в любом случае.
//
// HTTP коды:
// - 200 OK: лимит перевзведен
// - 404 Not Found: лимит не существует
// - 500 Internal Server Error: ошибка сервера
func (h *AdminHandler) ResetLimit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	ownerID, err := pathID(vars, "owner_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid owner ID")
		return
	}
	limitID, err := pathID(vars, "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid limit ID")
		return
	}

	var req ResetLimitRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	adminName := middleware.AdminName(r)

	limit, err := h.limitService.ResetLimit(ownerID, limitID, adminName, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrLimitNotFound) {
			respondWithError(w, http.StatusNotFound, "Risk limit not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to reset limit: "+err.Error())
		return
	}

	if h.stream != nil {
		h.stream.BroadcastBreachUpdate(ownerID, limitID, false, "admin reset by "+adminName)
	}

	respondWithJSON(w, http.StatusOK, limit)
}

// GetBreachesResponse представляет ответ обзора пробоев
type GetBreachesResponse struct {
	Breaches []*models.RiskLimit `json:"breaches"`
	Total    int                 `json:"total"`
}

// GetBreaches возвращает лимиты в состоянии пробоя по всем владельцам
//
// GET /api/v1/admin/breaches
//
// У зависших пробоев (закрытие не удалось) в last_trigger_reason
// присутствует текст ошибки закрытия.
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка сервера
func (h *AdminHandler) GetBreaches(w http.ResponseWriter, r *http.Request) {
	breaches, err := h.limitService.GetBreaches()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get breaches: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetBreachesResponse{
		Breaches: breaches,
		Total:    len(breaches),
	})
}
