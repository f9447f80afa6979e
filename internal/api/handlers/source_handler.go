package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"riskguard/internal/models"
	"riskguard/internal/service"
)

// SourceHandler отвечает за источники сигналов владельца
//
// Endpoints:
// - GET /api/v1/sources - список источников
// - POST /api/v1/sources/{id}/enable - включить источник обратно
//
// Отключает источники движок (auto_disable_source при пробое);
// API закрывает просмотр и ручное включение обратно.
type SourceHandler struct {
	sourceService service.SourceServiceInterface
}

// NewSourceHandler создает новый SourceHandler с внедрением зависимости
func NewSourceHandler(sourceService service.SourceServiceInterface) *SourceHandler {
	return &SourceHandler{
		sourceService: sourceService,
	}
}

// GetSourcesResponse представляет ответ списка источников
type GetSourcesResponse struct {
	Sources []*models.SignalSource `json:"sources"`
	Total   int                    `json:"total"`
}

// GetSources возвращает источники сигналов владельца
//
// GET /api/v1/sources
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка сервера
func (h *SourceHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	sources, err := h.sourceService.GetSources(ownerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get sources: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, GetSourcesResponse{
		Sources: sources,
		Total:   len(sources),
	})
}

// EnableSource включает источник сигналов обратно
//
// POST /api/v1/sources/{id}/enable
//
// HTTP коды:
// - 200 OK: источник включен
// - 404 Not Found: источник не существует или принадлежит другому владельцу
func (h *SourceHandler) EnableSource(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireOwner(w, r)
	if !ok {
		return
	}

	id, err := pathID(mux.Vars(r), "id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid source ID")
		return
	}

	source, err := h.sourceService.EnableSource(ownerID, id)
	if err != nil {
		if errors.Is(err, service.ErrSourceNotFound) {
			respondWithError(w, http.StatusNotFound, "Signal source not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to enable source: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, source)
}
