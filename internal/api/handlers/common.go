package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"riskguard/internal/api/middleware"
)

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// requireOwner извлекает owner_id из контекста запроса
//
// Middleware OwnerAuth должен стоять перед handler; отсутствие значения
// в контексте означает ошибку конфигурации роутера.
func requireOwner(w http.ResponseWriter, r *http.Request) (int, bool) {
	ownerID, ok := middleware.OwnerID(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "owner not identified")
		return 0, false
	}
	return ownerID, true
}

// parsePagination читает limit и offset из query параметров
func parsePagination(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// pathID извлекает числовой параметр пути
func pathID(vars map[string]string, name string) (int, error) {
	return strconv.Atoi(vars[name])
}
