package engine

import (
	"riskguard/internal/models"
)

// Виды экспозиции, вычисляемые оценщиком
const (
	ExposureGain     = "gain"     // положительное отклонение equity от начала дня
	ExposureLoss     = "loss"     // отрицательное отклонение equity от начала дня
	ExposureDrawdown = "drawdown" // просадка от пикового баланса
)

// Evaluation - результат проверки одного лимита против снимка счёта
//
// ApplicablePositions содержит ID позиций, попавших под область действия
// лимита, в порядке следования в снимке. Пустой набор означает что лимиту
// нечего защищать: такой лимит не может сработать.
type Evaluation struct {
	Violated            bool
	ExposurePercent     float64
	ThresholdPercent    float64
	ExposureKind        string
	ApplicablePositions []int64
}

// Evaluate проверяет один лимит против снимка счёта владельца
//
// Чистая функция: не обращается к БД и внешним сервисам, не мутирует аргументы.
// Оба пути движка (периодический монитор и одноразовая проверка) используют
// одни и те же формулы процентов, чтобы их вердикты не расходились.
//
// Правило границы: нарушением считается только строгое превышение порога.
// Экспозиция, равная порогу, безопасна.
func Evaluate(limit *models.RiskLimit, snap *models.PositionSnapshot) Evaluation {
	applicable := FilterByScope(limit, snap.Positions)

	eval := Evaluation{
		ApplicablePositions: positionIDs(applicable),
	}

	// Лимит без подходящих позиций не срабатывает
	if len(applicable) == 0 {
		return eval
	}

	// Проверка отклонения equity (gain/loss) от начала торгового дня
	if limit.MaxGainPercent != nil || limit.MaxLossPercent != nil {
		change := GainLossPercent(currentEquity(snap), snap.StartOfDayEquity)

		if limit.MaxGainPercent != nil && change > 0 {
			eval.ExposurePercent = change
			eval.ExposureKind = ExposureGain
			eval.ThresholdPercent = *limit.MaxGainPercent
			if change > *limit.MaxGainPercent {
				eval.Violated = true
				return eval
			}
		}

		if limit.MaxLossPercent != nil && change < 0 {
			loss := -change
			eval.ExposurePercent = loss
			eval.ExposureKind = ExposureLoss
			eval.ThresholdPercent = *limit.MaxLossPercent
			if loss > *limit.MaxLossPercent {
				eval.Violated = true
				return eval
			}
		}
	}

	// Проверка просадки от пикового баланса, ограниченная вкладом
	// подходящих позиций: PnL позиций вне области действия исключается
	if limit.MaxDrawdownPercent != nil {
		scoped := ScopedBalance(snap, applicable)
		dd := DrawdownPercent(snap.PeakBalance, scoped)

		if dd > eval.ExposurePercent || eval.ExposureKind == "" {
			eval.ExposurePercent = dd
			eval.ExposureKind = ExposureDrawdown
			eval.ThresholdPercent = *limit.MaxDrawdownPercent
		}
		if dd > *limit.MaxDrawdownPercent {
			eval.Violated = true
			eval.ExposurePercent = dd
			eval.ExposureKind = ExposureDrawdown
			eval.ThresholdPercent = *limit.MaxDrawdownPercent
		}
	}

	return eval
}

// FilterByScope возвращает позиции снимка, попадающие под область действия лимита
//
// global - все позиции; provider - совпадение SourceProviderID;
// symbol - совпадение Symbol; provider_symbol - пересечение обоих условий.
func FilterByScope(limit *models.RiskLimit, positions []models.OpenPosition) []models.OpenPosition {
	if limit.Scope == models.ScopeGlobal {
		// Копия, чтобы вызывающий не мутировал снимок через результат
		out := make([]models.OpenPosition, len(positions))
		copy(out, positions)
		return out
	}

	out := make([]models.OpenPosition, 0, len(positions))
	for _, pos := range positions {
		if limit.HasProviderScope() {
			if limit.ProviderID == nil || pos.SourceProviderID != *limit.ProviderID {
				continue
			}
		}
		if limit.HasSymbolScope() && pos.Symbol != limit.Symbol {
			continue
		}
		out = append(out, pos)
	}
	return out
}

// GainLossPercent вычисляет отклонение equity в процентах от начала дня
//
// Положительный результат - прибыль, отрицательный - убыток.
// При нулевом или отрицательном стартовом equity возвращает 0:
// делить не на что, и такой счёт лимитами не защищается.
func GainLossPercent(current, startOfDay float64) float64 {
	if startOfDay <= 0 {
		return 0
	}
	return (current - startOfDay) / startOfDay * 100
}

// DrawdownPercent вычисляет просадку текущего баланса от пика в процентах
//
// Отрицательная просадка (баланс выше пика) возвращается как 0.
func DrawdownPercent(peak, current float64) float64 {
	if peak <= 0 {
		return 0
	}
	dd := (peak - current) / peak * 100
	if dd < 0 {
		return 0
	}
	return dd
}

// ScopedBalance возвращает баланс счёта с учётом только подходящих позиций
//
// Нереализованный PnL позиций вне области действия лимита исключается из
// баланса, чтобы просадка отражала вклад именно защищаемого подмножества.
func ScopedBalance(snap *models.PositionSnapshot, applicable []models.OpenPosition) float64 {
	inScope := make(map[int64]bool, len(applicable))
	for _, pos := range applicable {
		inScope[pos.ID] = true
	}

	balance := snap.AccountBalance
	for _, pos := range snap.Positions {
		if !inScope[pos.ID] {
			balance -= pos.UnrealizedProfit
		}
	}
	return balance
}

// currentEquity возвращает текущий equity счёта: баланс плюс плавающий PnL
func currentEquity(snap *models.PositionSnapshot) float64 {
	equity := snap.AccountBalance
	for _, pos := range snap.Positions {
		equity += pos.UnrealizedProfit
	}
	return equity
}

// positionIDs собирает ID позиций, сохраняя порядок снимка
func positionIDs(positions []models.OpenPosition) []int64 {
	ids := make([]int64, 0, len(positions))
	for _, pos := range positions {
		ids = append(ids, pos.ID)
	}
	return ids
}
