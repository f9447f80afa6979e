package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"riskguard/internal/api/handlers"
	"riskguard/internal/api/middleware"
	"riskguard/internal/service"
	"riskguard/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	LimitService  service.LimitServiceInterface
	EventService  service.EventServiceInterface
	CheckService  service.CheckServiceInterface
	SourceService service.SourceServiceInterface

	Hub *websocket.Hub

	// AdminTokenHash - bcrypt хеш административного токена.
	// Пустое значение полностью закрывает админские endpoints.
	AdminTokenHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/ (требует X-Owner-ID)
//
//	├── /limits/
//	│   ├── GET / - список лимитов владельца
//	│   ├── POST / - создать лимит
//	│   ├── GET /{id} - получить лимит
//	│   ├── PATCH /{id} - обновить лимит
//	│   ├── DELETE /{id} - удалить лимит
//	│   └── GET /{id}/events - история лимита
//	├── /events/
//	│   ├── GET / - журнал аудита владельца
//	│   └── GET /{id} - одно событие
//	├── /check - POST, одноразовая проверка пары equity
//	└── /sources/
//	    ├── GET / - источники сигналов владельца
//	    └── POST /{id}/enable - включить источник обратно
//
// /api/v1/admin/ (требует X-Admin-Token)
//
//	├── POST /owners/{owner_id}/limits/{id}/reset - перевзвод лимита
//	└── GET /breaches - текущие пробои по всем владельцам
//
// /ws/stream - WebSocket для real-time обновлений дашборда
// /metrics - Prometheus метрики
// /health - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. OwnerAuth / AdminAuth (для соответствующих групп)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var limitHandler *handlers.LimitHandler
	var adminHandler *handlers.AdminHandler
	if deps != nil && deps.LimitService != nil {
		limitHandler = handlers.NewLimitHandler(deps.LimitService)
		var breachStream handlers.BreachStreamer
		if deps.Hub != nil {
			breachStream = deps.Hub
		}
		adminHandler = handlers.NewAdminHandler(deps.LimitService, breachStream)
	}

	var eventHandler *handlers.EventHandler
	if deps != nil && deps.EventService != nil {
		eventHandler = handlers.NewEventHandler(deps.EventService)
	}

	var checkHandler *handlers.CheckHandler
	if deps != nil && deps.CheckService != nil {
		// Типизированный nil *Hub в интерфейсе не равен nil, поэтому
		// stream заполняется только при реально сконфигурированном hub
		var stream handlers.CheckStreamer
		if deps.Hub != nil {
			stream = deps.Hub
		}
		checkHandler = handlers.NewCheckHandler(deps.CheckService, stream)
	}

	var sourceHandler *handlers.SourceHandler
	if deps != nil && deps.SourceService != nil {
		sourceHandler = handlers.NewSourceHandler(deps.SourceService)
	}

	// API v1 routes, изолированные по владельцу
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.OwnerAuth)

	// Limit routes
	if limitHandler != nil {
		api.HandleFunc("/limits", limitHandler.GetLimits).Methods("GET")
		api.HandleFunc("/limits", limitHandler.CreateLimit).Methods("POST")
		api.HandleFunc("/limits/{id}", limitHandler.GetLimit).Methods("GET")
		api.HandleFunc("/limits/{id}", limitHandler.UpdateLimit).Methods("PATCH")
		api.HandleFunc("/limits/{id}", limitHandler.DeleteLimit).Methods("DELETE")
	}

	// Event routes
	if eventHandler != nil {
		api.HandleFunc("/events", eventHandler.GetEvents).Methods("GET")
		api.HandleFunc("/events/{id}", eventHandler.GetEvent).Methods("GET")
		api.HandleFunc("/limits/{id}/events", eventHandler.GetLimitHistory).Methods("GET")
	}

	// Check route
	if checkHandler != nil {
		api.HandleFunc("/check", checkHandler.RunCheck).Methods("POST")
	}

	// Source routes
	if sourceHandler != nil {
		api.HandleFunc("/sources", sourceHandler.GetSources).Methods("GET")
		api.HandleFunc("/sources/{id}/enable", sourceHandler.EnableSource).Methods("POST")
	}

	// Админские routes: отдельный subrouter с проверкой токена
	if adminHandler != nil {
		var tokenHash string
		if deps != nil {
			tokenHash = deps.AdminTokenHash
		}
		admin := router.PathPrefix("/api/v1/admin").Subrouter()
		admin.Use(middleware.AdminAuth(tokenHash))
		admin.HandleFunc("/owners/{owner_id}/limits/{id}/reset", adminHandler.ResetLimit).Methods("POST")
		admin.HandleFunc("/breaches", adminHandler.GetBreaches).Methods("GET")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
