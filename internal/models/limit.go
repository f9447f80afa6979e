package models

import "time"

// RiskLimit представляет пользовательское правило ограничения риска
//
// Каждый лимит привязан к владельцу (OwnerID) и области действия (Scope):
// - global: все открытые позиции владельца
// - provider: только позиции от конкретного поставщика сигналов
// - symbol: только позиции по конкретному инструменту
// - provider_symbol: пересечение provider и symbol
//
// Минимум один из порогов (MaxGainPercent, MaxLossPercent, MaxDrawdownPercent)
// должен быть установлен. Неактивные лимиты (IsActive=false) не проверяются.
type RiskLimit struct {
	ID                 int        `json:"id" db:"id"`
	OwnerID            int        `json:"owner_id" db:"owner_id"`
	Scope              string     `json:"scope" db:"scope"`                               // global, provider, symbol, provider_symbol
	ProviderID         *int       `json:"provider_id,omitempty" db:"provider_id"`         // для scope provider / provider_symbol
	Symbol             string     `json:"symbol,omitempty" db:"symbol"`                   // для scope symbol / provider_symbol
	MaxGainPercent     *float64   `json:"max_gain_percent,omitempty" db:"max_gain_percent"`
	MaxLossPercent     *float64   `json:"max_loss_percent,omitempty" db:"max_loss_percent"`
	MaxDrawdownPercent *float64   `json:"max_drawdown_percent,omitempty" db:"max_drawdown_percent"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	AutoDisableSource  bool       `json:"auto_disable_source" db:"auto_disable_source"`   // отключить источник сигналов при пробое
	NotifyOnly         bool       `json:"notify_only" db:"notify_only"`                   // только уведомить, без закрытия позиций
	LastTriggeredAt    *time.Time `json:"last_triggered_at,omitempty" db:"last_triggered_at"`
	LastTriggerReason  *string    `json:"last_trigger_reason,omitempty" db:"last_trigger_reason"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// Области действия лимита
const (
	ScopeGlobal         = "global"
	ScopeProvider       = "provider"
	ScopeSymbol         = "symbol"
	ScopeProviderSymbol = "provider_symbol"
)

// Triggered сообщает, зафиксирован ли по лимиту необработанный пробой
func (l *RiskLimit) Triggered() bool {
	return l.LastTriggeredAt != nil
}

// HasProviderScope сообщает, сужен ли лимит до конкретного поставщика сигналов
func (l *RiskLimit) HasProviderScope() bool {
	return l.Scope == ScopeProvider || l.Scope == ScopeProviderSymbol
}

// HasSymbolScope сообщает, сужен ли лимит до конкретного инструмента
func (l *RiskLimit) HasSymbolScope() bool {
	return l.Scope == ScopeSymbol || l.Scope == ScopeProviderSymbol
}

// HasThreshold сообщает, установлен ли хотя бы один порог
func (l *RiskLimit) HasThreshold() bool {
	return l.MaxGainPercent != nil || l.MaxLossPercent != nil || l.MaxDrawdownPercent != nil
}
