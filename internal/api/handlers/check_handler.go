package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"riskguard/internal/service"
)

// CheckHandler отвечает за синхронную одноразовую проверку лимитов
//
// Endpoints:
// - POST /api/v1/check - проверить пару equity против лимитов владельца
//
// Проверка только читает: никаких действий над позициями, событий
// и мутаций состояния лимитов. Используется дашбордом и ботами
// перед открытием сделки.
type CheckHandler struct {
	checkService service.CheckServiceInterface
	stream       CheckStreamer
}

// CheckStreamer доставляет результаты проверок подключенным клиентам дашборда
type CheckStreamer interface {
	BroadcastCheckResult(ownerID int, result interface{})
}

// NewCheckHandler создает новый CheckHandler с внедрением зависимостей
//
// stream может быть nil: проверка работает и без WebSocket hub.
func NewCheckHandler(checkService service.CheckServiceInterface, stream CheckStreamer) *CheckHandler {
	return &CheckHandler{
		checkService: checkService,
		stream:       stream,
	}
}

// RunCheck выполняет одноразовую проверку
//
// POST /api/v1/check
//
// Тело запроса:
//
//	{"current_equity": 10350.0, "start_equity": 10000.0}
//
// Ответ содержит агрегированный статус (safe, warning, limit_exceeded)
// и вердикты по каждому активному лимиту владельца.
//
// HTTP коды:
// - 200 OK: проверка выполнена (любой из трех статусов)
// - 400 Bad Request: невалидное тело или неположительный start_equity
// - 500 Internal Server Error: ошибка сервера
func (h *CheckHandler) RunCheck(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req service.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.checkService.RunCheck(ownerID, req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidEquity) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Check failed: "+err.Error())
		return
	}

	if h.stream != nil {
		h.stream.BroadcastCheckResult(ownerID, result)
	}

	respondWithJSON(w, http.StatusOK, result)
}
