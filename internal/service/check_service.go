package service

import (
	"errors"

	"riskguard/internal/engine"
	"riskguard/internal/models"
)

// Ошибки одноразовой проверки
var (
	ErrInvalidEquity = errors.New("start of period equity must be positive")
)

// Статусы одноразовой проверки
const (
	CheckStatusSafe     = "safe"
	CheckStatusWarning  = "warning"
	CheckStatusExceeded = "limit_exceeded"
)

// Доля порога, с которой начинается предупреждающая зона
const warningBand = 0.8

// CheckRequest - входные данные одноразовой проверки
type CheckRequest struct {
	CurrentEquity float64 `json:"current_equity"`
	StartEquity   float64 `json:"start_equity"`
}

// LimitVerdict - вердикт по одному лимиту владельца
type LimitVerdict struct {
	LimitID          int     `json:"limit_id"`
	Scope            string  `json:"scope"`
	Status           string  `json:"status"`
	Kind             string  `json:"kind"`
	ExposurePercent  float64 `json:"exposure_percent"`
	ThresholdPercent float64 `json:"threshold_percent"`
}

// CheckResult - агрегированный результат одноразовой проверки
type CheckResult struct {
	Status          string         `json:"status"`
	ExposurePercent float64        `json:"exposure_percent"`
	Verdicts        []LimitVerdict `json:"verdicts"`
}

// CheckService - синхронная проверка пары equity против лимитов владельца
//
// Используется дашбордом и внешними ботами перед открытием сделки.
// Только чтение: никаких действий, событий и мутаций состояния лимитов.
// Проценты считаются теми же формулами, что и в цикле мониторинга.
//
// Проверяются только gain/loss пороги: для просадки нужен полный снимок
// позиций, а на входе только пара equity.
type CheckService struct {
	limitRepo LimitRepositoryInterface
}

// NewCheckService создает новый экземпляр CheckService
func NewCheckService(limitRepo LimitRepositoryInterface) *CheckService {
	return &CheckService{limitRepo: limitRepo}
}

// RunCheck проверяет пару equity против активных лимитов владельца
//
// Статусы по нарастанию серьезности: safe, warning (экспозиция достигла
// 80% порога), limit_exceeded (строгое превышение порога). Агрегированный
// статус - худший из вердиктов. Владелец без лимитов всегда safe.
func (s *CheckService) RunCheck(ownerID int, req CheckRequest) (*CheckResult, error) {
	if req.StartEquity <= 0 {
		return nil, ErrInvalidEquity
	}

	limits, err := s.limitRepo.GetActiveByOwner(ownerID)
	if err != nil {
		return nil, err
	}

	change := engine.GainLossPercent(req.CurrentEquity, req.StartEquity)

	result := &CheckResult{
		Status:          CheckStatusSafe,
		ExposurePercent: change,
		Verdicts:        make([]LimitVerdict, 0, len(limits)),
	}

	for _, limit := range limits {
		verdict, ok := judgeLimit(limit, change)
		if !ok {
			continue
		}
		result.Verdicts = append(result.Verdicts, verdict)
		if worse(verdict.Status, result.Status) {
			result.Status = verdict.Status
		}
	}

	return result, nil
}

// judgeLimit выносит вердикт по одному лимиту
//
// Лимиты только с просадочным порогом пропускаются (второй результат false).
func judgeLimit(limit *models.RiskLimit, change float64) (LimitVerdict, bool) {
	verdict := LimitVerdict{
		LimitID: limit.ID,
		Scope:   limit.Scope,
		Status:  CheckStatusSafe,
	}

	switch {
	case limit.MaxGainPercent != nil && change > 0:
		verdict.Kind = engine.ExposureGain
		verdict.ExposurePercent = change
		verdict.ThresholdPercent = *limit.MaxGainPercent
	case limit.MaxLossPercent != nil && change < 0:
		verdict.Kind = engine.ExposureLoss
		verdict.ExposurePercent = -change
		verdict.ThresholdPercent = *limit.MaxLossPercent
	default:
		return verdict, false
	}

	switch {
	case verdict.ExposurePercent > verdict.ThresholdPercent:
		verdict.Status = CheckStatusExceeded
	case verdict.ExposurePercent >= verdict.ThresholdPercent*warningBand:
		verdict.Status = CheckStatusWarning
	}

	return verdict, true
}

// worse сравнивает серьезность двух статусов
func worse(a, b string) bool {
	rank := map[string]int{
		CheckStatusSafe:     0,
		CheckStatusWarning:  1,
		CheckStatusExceeded: 2,
	}
	return rank[a] > rank[b]
}
