package models

import "time"

// PositionSnapshot представляет срез состояния счёта владельца
//
// Снимок приходит от внешнего провайдера (торгового моста) и для движка
// лимитов доступен только на чтение. Каждый цикл мониторинга запрашивает
// свежий снимок — движок не хранит состояние счёта между циклами.
type PositionSnapshot struct {
	OwnerID          int            `json:"owner_id"`
	AccountBalance   float64        `json:"account_balance"`
	PeakBalance      float64        `json:"peak_balance"`        // исторический максимум баланса
	StartOfDayEquity float64        `json:"start_of_day_equity"` // equity на начало торгового дня
	Positions        []OpenPosition `json:"positions"`
	TakenAt          time.Time      `json:"taken_at"`
}

// OpenPosition представляет одну открытую позицию в снимке
type OpenPosition struct {
	ID               int64   `json:"id"`
	ExternalTicket   int64   `json:"external_ticket"` // тикет на торговой платформе
	Symbol           string  `json:"symbol"`
	SourceProviderID int     `json:"source_provider_id"` // поставщик сигнала, открывший позицию
	UnrealizedProfit float64 `json:"unrealized_profit"`
}

// HasOpenPositions сообщает, есть ли в снимке открытые позиции
func (s *PositionSnapshot) HasOpenPositions() bool {
	return len(s.Positions) > 0
}
