package engine

import (
	"fmt"

	"riskguard/internal/models"
)

// Типы защитных действий
const (
	ActionCloseAll      = "close_all"      // закрыть все позиции владельца
	ActionCloseProvider = "close_provider" // закрыть позиции одного поставщика
	ActionCloseSymbol   = "close_symbol"   // закрыть позиции по одному инструменту
	ActionNotifyOnly    = "notify_only"    // только уведомить, ничего не закрывать
)

// Action - разрешённое защитное действие для пробитого лимита
//
// AffectedPositionIDs всегда является подмножеством ApplicablePositions
// оценщика; для close_all наборы совпадают. Tickets - внешние тикеты тех же
// позиций в том же порядке, их получает торговая платформа.
type Action struct {
	Type                string
	LimitID             int
	OwnerID             int
	AffectedPositionIDs []int64
	Tickets             []int64
	Reason              string
}

// Resolve отображает пробитый лимит в конкретное защитное действие
//
// Чистая функция, отображение детерминировано областью действия лимита:
// global -> close_all, provider -> close_provider, symbol -> close_symbol,
// provider+symbol -> close_symbol, суженный до поставщика.
//
// NotifyOnly перекрывает любую область: действие становится notify_only,
// но затронутые позиции всё равно вычисляются - они нужны для текста
// уведомления, в путь закрытия они не попадают.
func Resolve(limit *models.RiskLimit, eval Evaluation, snap *models.PositionSnapshot) Action {
	action := Action{
		LimitID:             limit.ID,
		OwnerID:             limit.OwnerID,
		AffectedPositionIDs: eval.ApplicablePositions,
		Tickets:             ticketsFor(eval.ApplicablePositions, snap),
		Reason: fmt.Sprintf("risk limit #%d breached: %s %.2f%% exceeds threshold %.2f%%",
			limit.ID, eval.ExposureKind, eval.ExposurePercent, eval.ThresholdPercent),
	}

	if limit.NotifyOnly {
		action.Type = ActionNotifyOnly
		return action
	}

	switch limit.Scope {
	case models.ScopeProvider:
		action.Type = ActionCloseProvider
	case models.ScopeSymbol, models.ScopeProviderSymbol:
		action.Type = ActionCloseSymbol
	default:
		action.Type = ActionCloseAll
	}

	return action
}

// ticketsFor сопоставляет ID позиций с внешними тикетами платформы
func ticketsFor(ids []int64, snap *models.PositionSnapshot) []int64 {
	byID := make(map[int64]int64, len(snap.Positions))
	for _, pos := range snap.Positions {
		byID[pos.ID] = pos.ExternalTicket
	}

	tickets := make([]int64, 0, len(ids))
	for _, id := range ids {
		if ticket, ok := byID[id]; ok {
			tickets = append(tickets, ticket)
		}
	}
	return tickets
}
