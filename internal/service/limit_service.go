package service

import (
	"errors"
	"fmt"
	"time"

	"riskguard/internal/models"
	"riskguard/internal/repository"
)

// Ошибки сервиса лимитов
var (
	ErrLimitNotFound      = errors.New("risk limit not found")
	ErrInvalidScope       = errors.New("invalid limit scope")
	ErrProviderRequired   = errors.New("provider scope requires provider_id")
	ErrSymbolRequired     = errors.New("symbol scope requires symbol")
	ErrScopeFieldConflict = errors.New("scope fields inconsistent with scope")
	ErrNoThreshold        = errors.New("at least one threshold must be set")
	ErrInvalidPercent     = errors.New("threshold percent must be in [0, 100]")
)

// LimitService предоставляет бизнес-логику управления лимитами риска.
//
// Отвечает за:
// - Создание/обновление/удаление лимитов с валидацией до записи в БД
// - Выдачу лимитов владельца с пагинацией
// - Административный сброс (перевзвод) сработавшего лимита
// - Кросс-владельческий обзор текущих пробоев для админки
//
// Невалидное определение лимита отклоняется здесь и никогда не доходит
// до цикла мониторинга.
type LimitService struct {
	limitRepo LimitRepositoryInterface
	eventRepo EventRepositoryInterface
}

// NewLimitService создает новый экземпляр LimitService
func NewLimitService(limitRepo LimitRepositoryInterface, eventRepo EventRepositoryInterface) *LimitService {
	return &LimitService{
		limitRepo: limitRepo,
		eventRepo: eventRepo,
	}
}

// CreateLimit валидирует и создает лимит владельца
func (s *LimitService) CreateLimit(ownerID int, limit *models.RiskLimit) error {
	limit.OwnerID = ownerID
	limit.LastTriggeredAt = nil
	limit.LastTriggerReason = nil

	if err := validateLimit(limit); err != nil {
		return err
	}

	return s.limitRepo.Create(limit)
}

// GetLimit возвращает лимит владельца по ID
func (s *LimitService) GetLimit(ownerID, id int) (*models.RiskLimit, error) {
	limit, err := s.limitRepo.GetByOwnerAndID(ownerID, id)
	if errors.Is(err, repository.ErrLimitNotFound) {
		return nil, ErrLimitNotFound
	}
	return limit, err
}

// GetLimits возвращает лимиты владельца с пагинацией
func (s *LimitService) GetLimits(ownerID, limit, offset int) ([]*models.RiskLimit, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return s.limitRepo.GetByOwner(ownerID, limit, offset)
}

// UpdateLimitParams - частичное обновление определения лимита
//
// nil поле означает "не менять". Указатель на nil-значение для порогов
// не поддерживается: порог снимается передачей нового набора порогов
// через полное обновление.
type UpdateLimitParams struct {
	Scope              *string
	ProviderID         *int
	Symbol             *string
	MaxGainPercent     *float64
	MaxLossPercent     *float64
	MaxDrawdownPercent *float64
	IsActive           *bool
	AutoDisableSource  *bool
	NotifyOnly         *bool
}

// UpdateLimit применяет частичное обновление к лимиту владельца
func (s *LimitService) UpdateLimit(ownerID, id int, params UpdateLimitParams) (*models.RiskLimit, error) {
	limit, err := s.GetLimit(ownerID, id)
	if err != nil {
		return nil, err
	}

	if params.Scope != nil {
		limit.Scope = *params.Scope
	}
	if params.ProviderID != nil {
		limit.ProviderID = params.ProviderID
	}
	if params.Symbol != nil {
		limit.Symbol = *params.Symbol
	}
	if params.MaxGainPercent != nil {
		limit.MaxGainPercent = params.MaxGainPercent
	}
	if params.MaxLossPercent != nil {
		limit.MaxLossPercent = params.MaxLossPercent
	}
	if params.MaxDrawdownPercent != nil {
		limit.MaxDrawdownPercent = params.MaxDrawdownPercent
	}
	if params.IsActive != nil {
		limit.IsActive = *params.IsActive
	}
	if params.AutoDisableSource != nil {
		limit.AutoDisableSource = *params.AutoDisableSource
	}
	if params.NotifyOnly != nil {
		limit.NotifyOnly = *params.NotifyOnly
	}

	if err := validateLimit(limit); err != nil {
		return nil, err
	}

	if err := s.limitRepo.Update(limit); err != nil {
		if errors.Is(err, repository.ErrLimitNotFound) {
			return nil, ErrLimitNotFound
		}
		return nil, err
	}

	return limit, nil
}

// DeleteLimit удаляет лимит владельца
func (s *LimitService) DeleteLimit(ownerID, id int) error {
	// Сначала проверка принадлежности: чужой лимит удалить нельзя
	if _, err := s.GetLimit(ownerID, id); err != nil {
		return err
	}
	if err := s.limitRepo.Delete(id); err != nil {
		if errors.Is(err, repository.ErrLimitNotFound) {
			return ErrLimitNotFound
		}
		return err
	}
	return nil
}

// ResetLimit перевзводит лимит после пробоя
//
// Привилегированная операция: активирует лимит, очищает поля срабатывания
// и пишет admin_reset событие с именем администратора. Сброс лимита без
// зафиксированного пробоя - no-op успех, но событие всё равно пишется:
// след административного вмешательства важнее экономии строки аудита.
func (s *LimitService) ResetLimit(ownerID, limitID int, adminName, reason string) (*models.RiskLimit, error) {
	limit, err := s.GetLimit(ownerID, limitID)
	if err != nil {
		return nil, err
	}

	if err := s.limitRepo.Reset(limitID); err != nil {
		if errors.Is(err, repository.ErrLimitNotFound) {
			return nil, ErrLimitNotFound
		}
		return nil, err
	}

	details := fmt.Sprintf("reset by %s", adminName)
	if reason != "" {
		details = fmt.Sprintf("%s: %s", details, reason)
	}

	event := &models.RiskEvent{
		OwnerID:   ownerID,
		LimitID:   limitID,
		EventType: models.EventAdminReset,
		Details:   details,
		Timestamp: time.Now(),
	}
	if err := s.eventRepo.Create(event); err != nil {
		return nil, fmt.Errorf("reset applied but audit write failed: %w", err)
	}

	limit.IsActive = true
	limit.LastTriggeredAt = nil
	limit.LastTriggerReason = nil
	return limit, nil
}

// GetBreaches возвращает лимиты в состоянии пробоя по всем владельцам
//
// Админский обзор: видно и успешно обработанные пробои, и зависшие
// (у зависших в last_trigger_reason присутствует текст ошибки закрытия).
func (s *LimitService) GetBreaches() ([]*models.RiskLimit, error) {
	return s.limitRepo.GetTriggered()
}

// validateLimit проверяет согласованность определения лимита
func validateLimit(limit *models.RiskLimit) error {
	switch limit.Scope {
	case models.ScopeGlobal:
		if limit.ProviderID != nil || limit.Symbol != "" {
			return ErrScopeFieldConflict
		}
	case models.ScopeProvider:
		if limit.ProviderID == nil {
			return ErrProviderRequired
		}
		if limit.Symbol != "" {
			return ErrScopeFieldConflict
		}
	case models.ScopeSymbol:
		if limit.Symbol == "" {
			return ErrSymbolRequired
		}
		if limit.ProviderID != nil {
			return ErrScopeFieldConflict
		}
	case models.ScopeProviderSymbol:
		if limit.ProviderID == nil {
			return ErrProviderRequired
		}
		if limit.Symbol == "" {
			return ErrSymbolRequired
		}
	default:
		return ErrInvalidScope
	}

	if !limit.HasThreshold() {
		return ErrNoThreshold
	}

	for _, threshold := range []*float64{limit.MaxGainPercent, limit.MaxLossPercent, limit.MaxDrawdownPercent} {
		if threshold == nil {
			continue
		}
		if *threshold < 0 || *threshold > 100 {
			return ErrInvalidPercent
		}
	}

	return nil
}
