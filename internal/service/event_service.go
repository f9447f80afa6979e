package service

import (
	"errors"

	"riskguard/internal/models"
	"riskguard/internal/repository"
)

// Ошибки сервиса событий
var (
	ErrEventNotFound = errors.New("risk event not found")
)

// EventService - выдача журнала аудита движка лимитов
//
// Журнал append-only; сервис только читает. Записи создают Executor
// и административный сброс.
type EventService struct {
	eventRepo EventRepositoryInterface
}

// NewEventService создает новый экземпляр EventService
func NewEventService(eventRepo EventRepositoryInterface) *EventService {
	return &EventService{eventRepo: eventRepo}
}

// GetEvents возвращает события владельца, новые первыми
func (s *EventService) GetEvents(ownerID, limit, offset int) ([]*models.RiskEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.GetByOwner(ownerID, limit, offset)
}

// GetEvent возвращает событие владельца по ID
func (s *EventService) GetEvent(ownerID, id int) (*models.RiskEvent, error) {
	event, err := s.eventRepo.GetByID(id)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	// Чужие события неотличимы от несуществующих
	if event.OwnerID != ownerID {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// GetLimitHistory возвращает события конкретного лимита владельца
func (s *EventService) GetLimitHistory(ownerID, limitID, limit, offset int) ([]*models.RiskEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	events, err := s.eventRepo.GetByLimit(limitID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Лимит мог быть удален, события живут дольше лимита; фильтр по
	// владельцу защищает от перечисления чужих журналов
	filtered := make([]*models.RiskEvent, 0, len(events))
	for _, event := range events {
		if event.OwnerID == ownerID {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}

// CountEvents возвращает количество событий владельца
func (s *EventService) CountEvents(ownerID int) (int, error) {
	return s.eventRepo.CountByOwner(ownerID)
}
