package service

import (
	"errors"

	"riskguard/internal/models"
	"riskguard/internal/repository"
)

// Ошибки сервиса источников
var (
	ErrSourceNotFound = errors.New("signal source not found")
)

// SourceService - управление источниками сигналов владельца
//
// Отключение источника в нормальном потоке делает Executor при пробое
// лимита с auto_disable_source; сервис закрывает ручное включение
// обратно и просмотр текущего состояния.
type SourceService struct {
	sourceRepo SourceRepositoryInterface
}

// NewSourceService создает новый экземпляр SourceService
func NewSourceService(sourceRepo SourceRepositoryInterface) *SourceService {
	return &SourceService{sourceRepo: sourceRepo}
}

// GetSources возвращает источники сигналов владельца
func (s *SourceService) GetSources(ownerID int) ([]*models.SignalSource, error) {
	return s.sourceRepo.GetByOwner(ownerID)
}

// EnableSource включает источник владельца обратно после отключения
func (s *SourceService) EnableSource(ownerID, id int) (*models.SignalSource, error) {
	source, err := s.sourceRepo.GetByID(id)
	if errors.Is(err, repository.ErrSourceNotFound) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	if source.OwnerID != ownerID {
		return nil, ErrSourceNotFound
	}

	if err := s.sourceRepo.Enable(id); err != nil {
		if errors.Is(err, repository.ErrSourceNotFound) {
			return nil, ErrSourceNotFound
		}
		return nil, err
	}

	source.IsActive = true
	source.DisabledReason = nil
	source.DisabledAt = nil
	return source, nil
}
