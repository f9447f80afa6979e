package service

import (
	"time"

	"riskguard/internal/models"
	"riskguard/internal/repository"
)

// ============================================================
// Интерфейсы репозиториев для dependency injection
// ============================================================

// LimitRepositoryInterface - контракт хранилища лимитов
type LimitRepositoryInterface interface {
	Create(limit *models.RiskLimit) error
	GetByID(id int) (*models.RiskLimit, error)
	GetByOwnerAndID(ownerID, id int) (*models.RiskLimit, error)
	GetByOwner(ownerID, limit, offset int) ([]*models.RiskLimit, error)
	GetActive() ([]*models.RiskLimit, error)
	GetActiveByOwner(ownerID int) ([]*models.RiskLimit, error)
	GetTriggered() ([]*models.RiskLimit, error)
	Update(limit *models.RiskLimit) error
	Delete(id int) error
	MarkTriggered(id int, reason string, at time.Time) error
	ClearTrigger(id int) error
	Reset(id int) error
	CountByOwner(ownerID int) (int, error)
}

// EventRepositoryInterface - контракт журнала аудита
type EventRepositoryInterface interface {
	Create(event *models.RiskEvent) error
	GetByID(id int) (*models.RiskEvent, error)
	GetByOwner(ownerID, limit, offset int) ([]*models.RiskEvent, error)
	GetByLimit(limitID, limit, offset int) ([]*models.RiskEvent, error)
	CountByOwner(ownerID int) (int, error)
}

// SourceRepositoryInterface - контракт хранилища источников сигналов
type SourceRepositoryInterface interface {
	Create(source *models.SignalSource) error
	GetByID(id int) (*models.SignalSource, error)
	GetByOwner(ownerID int) ([]*models.SignalSource, error)
	Disable(id int, reason string) error
	Enable(id int) error
}

// Проверки реализации интерфейсов на этапе компиляции
var (
	_ LimitRepositoryInterface  = (*repository.LimitRepository)(nil)
	_ EventRepositoryInterface  = (*repository.EventRepository)(nil)
	_ SourceRepositoryInterface = (*repository.SourceRepository)(nil)
)

// ============================================================
// Интерфейсы сервисов для слоя API
// ============================================================

// LimitServiceInterface - контракт сервиса лимитов
type LimitServiceInterface interface {
	CreateLimit(ownerID int, limit *models.RiskLimit) error
	GetLimit(ownerID, id int) (*models.RiskLimit, error)
	GetLimits(ownerID, limit, offset int) ([]*models.RiskLimit, error)
	UpdateLimit(ownerID, id int, params UpdateLimitParams) (*models.RiskLimit, error)
	DeleteLimit(ownerID, id int) error
	ResetLimit(ownerID, limitID int, adminName, reason string) (*models.RiskLimit, error)
	GetBreaches() ([]*models.RiskLimit, error)
}

// EventServiceInterface - контракт сервиса событий
type EventServiceInterface interface {
	GetEvents(ownerID, limit, offset int) ([]*models.RiskEvent, error)
	GetEvent(ownerID, id int) (*models.RiskEvent, error)
	GetLimitHistory(ownerID, limitID, limit, offset int) ([]*models.RiskEvent, error)
	CountEvents(ownerID int) (int, error)
}

// CheckServiceInterface - контракт одноразовой проверки
type CheckServiceInterface interface {
	RunCheck(ownerID int, req CheckRequest) (*CheckResult, error)
}

// SourceServiceInterface - контракт сервиса источников
type SourceServiceInterface interface {
	GetSources(ownerID int) ([]*models.SignalSource, error)
	EnableSource(ownerID, id int) (*models.SignalSource, error)
}

// Проверки реализации интерфейсов на этапе компиляции
var (
	_ LimitServiceInterface  = (*LimitService)(nil)
	_ EventServiceInterface  = (*EventService)(nil)
	_ CheckServiceInterface  = (*CheckService)(nil)
	_ SourceServiceInterface = (*SourceService)(nil)
)
