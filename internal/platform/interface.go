// Package platform предоставляет интерфейсы внешних систем движка лимитов:
// провайдер снимков счёта, торговая платформа, реестр источников сигналов
// и канал уведомлений.
package platform

import (
	"context"
	"errors"

	"riskguard/internal/models"
)

// Ошибки платформы
var (
	// ErrSnapshotUnavailable - снимок счёта временно недоступен.
	// Владелец пропускается в текущем цикле и будет проверен в следующем,
	// событие аудита не пишется.
	ErrSnapshotUnavailable = errors.New("position snapshot unavailable")

	ErrAccountNotFound = errors.New("platform account not found")
)

// SnapshotProvider возвращает текущее состояние счёта владельца
type SnapshotProvider interface {
	// GetSnapshot получает баланс, пиковый баланс и открытые позиции владельца
	GetSnapshot(ctx context.Context, ownerID int) (*models.PositionSnapshot, error)
}

// CloseAck - подтверждение закрытия позиций платформой
type CloseAck struct {
	Closed        []int64 `json:"closed"`         // тикеты, закрытые этим запросом
	AlreadyClosed []int64 `json:"already_closed"` // тикеты, закрытые ранее (no-op)
}

// TradePlatform выполняет торговые команды на внешней платформе
type TradePlatform interface {
	// ClosePositions закрывает позиции по внешним тикетам.
	//
	// Запрос обязан быть идемпотентным: повторная отправка для уже закрытого
	// тикета - no-op, не ошибка. Монитор может повторно увидеть тот же пробой
	// до того, как статусы позиций распространятся.
	ClosePositions(ctx context.Context, ownerID int, tickets []int64, reason, idempotencyKey string) (*CloseAck, error)
}

// SourceRegistry управляет источниками сигналов во внешнем реестре
type SourceRegistry interface {
	// Disable деактивирует источник сигналов
	Disable(ctx context.Context, providerID int, reason string) error
}

// Notifier доставляет уведомление владельцу
//
// Доставка best-effort: ошибки логируются и никогда не блокируют enforcement.
type Notifier interface {
	Send(ctx context.Context, ownerID int, message string) error
}
