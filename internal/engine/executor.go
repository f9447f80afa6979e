package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"riskguard/internal/models"
	"riskguard/internal/platform"
)

// LimitStore - мутации лимитов, нужные исполнителю и монитору
type LimitStore interface {
	GetActive() ([]*models.RiskLimit, error)
	MarkTriggered(id int, reason string, at time.Time) error
	ClearTrigger(id int) error
}

// EventStore - журнал аудита
type EventStore interface {
	Create(event *models.RiskEvent) error
	AppendDetails(eventID int, details string) error
	HasEventSince(limitID int, eventType string, since time.Time) (bool, error)
}

// SourceStore - локальные записи об источниках сигналов
type SourceStore interface {
	Disable(providerID int, reason string) error
}

// PositionStore - локальные записи о позициях
type PositionStore interface {
	MarkClosing(ownerID int, positionIDs []int64) error
}

// ExecutorConfig - таймауты внешних вызовов исполнителя
type ExecutorConfig struct {
	// CloseTimeout ограничивает вызов закрытия позиций, чтобы одна
	// зависшая платформа не остановила весь цикл
	CloseTimeout time.Duration

	// DisableTimeout ограничивает вызов отключения источника
	DisableTimeout time.Duration

	// DedupWindow - окно поиска свежей детекции в журнале. Страхует от
	// дублей аудита после перезапуска, если пометка срабатывания не
	// успела записаться в БД. Должно быть не меньше интервала монитора.
	DedupWindow time.Duration
}

// DefaultExecutorConfig возвращает конфигурацию по умолчанию
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		CloseTimeout:   15 * time.Second,
		DisableTimeout: 5 * time.Second,
		DedupWindow:    5 * time.Minute,
	}
}

// Executor выполняет разрешённые защитные действия
//
// Последовательность на один пробой:
// 1. breach_detected пишется всегда, независимо от успеха остальных шагов
// 2. не notify_only: идемпотентный запрос закрытия на торговую платформу
// 3. успех закрытия: позиции помечаются closing, пишется positions_closed
// 4. autoDisableSource + provider scope: источник отключается, source_disabled
// 5. поля срабатывания лимита устанавливаются в любом исходе закрытия,
//    чтобы пробой не уведомлялся заново каждый цикл
// 6. уведомление отправляется best-effort через буферизованный канал
//
// Неудача закрытия не ретраится синхронно: следующий цикл мониторинга
// заново выведет мир из свежего снимка (семантика at-least-once).
type Executor struct {
	limits    LimitStore
	events    EventStore
	sources   SourceStore
	positions PositionStore
	trade     platform.TradePlatform
	registry  platform.SourceRegistry

	notifications chan<- *Notification
	hub           Broadcaster
	config        ExecutorConfig
}

// NewExecutor создаёт исполнителя защитных действий
//
// hub может быть nil: дашборд тогда не получает real-time обновлений,
// enforcement работает как обычно.
func NewExecutor(
	limits LimitStore,
	events EventStore,
	sources SourceStore,
	positions PositionStore,
	trade platform.TradePlatform,
	registry platform.SourceRegistry,
	notifications chan<- *Notification,
	hub Broadcaster,
	config ExecutorConfig,
) *Executor {
	if config.CloseTimeout <= 0 {
		config.CloseTimeout = 15 * time.Second
	}
	if config.DisableTimeout <= 0 {
		config.DisableTimeout = 5 * time.Second
	}
	if config.DedupWindow <= 0 {
		config.DedupWindow = 5 * time.Minute
	}
	return &Executor{
		limits:        limits,
		events:        events,
		sources:       sources,
		positions:     positions,
		trade:         trade,
		registry:      registry,
		notifications: notifications,
		hub:           hub,
		config:        config,
	}
}

// Enforce выполняет защитное действие для пробитого лимита
//
// Вызывающий обязан держать мьютекс лимита (см. LockArena) на всём протяжении
// "оценить -> решить -> Enforce", иначе два конкурентных цикла могут оба
// решить закрыть одни и те же позиции.
//
// Повторный вызов для уже сработавшего лимита (пробой переживает цикл,
// пока статусы позиций не распространились) повторяет только идемпотентное
// закрытие: события не дублируются, ошибка не возвращается.
func (e *Executor) Enforce(ctx context.Context, limit *models.RiskLimit, eval Evaluation, action Action, snap *models.PositionSnapshot) error {
	if limit.Triggered() {
		return e.reassertClose(ctx, limit, action)
	}

	now := time.Now()

	// Перезапуск после неудачной пометки срабатывания: в БД лимит выглядит
	// несработавшим, но детекция уже в журнале. Свежее breach_detected
	// новее последнего обновления лимита означает повтор, а не новый
	// пробой - пометка восстанавливается, закрытие повторяется
	// идемпотентно, аудит и уведомления не дублируются.
	since := now.Add(-e.config.DedupWindow)
	if limit.UpdatedAt.After(since) {
		since = limit.UpdatedAt
	}
	if seen, err := e.events.HasEventSince(limit.ID, models.EventBreachDetected, since); err != nil {
		log.Printf("executor: breach dedup check for limit %d failed: %v", limit.ID, err)
	} else if seen {
		e.markTriggered(limit, action.Reason, now)
		return e.reassertClose(ctx, limit, action)
	}

	// Детекция логируется всегда, даже если исполнение дальше провалится
	breachEvent := &models.RiskEvent{
		OwnerID:             limit.OwnerID,
		LimitID:             limit.ID,
		EventType:           models.EventBreachDetected,
		ExposurePercent:     eval.ExposurePercent,
		ThresholdPercent:    eval.ThresholdPercent,
		AccountBalance:      snap.AccountBalance,
		AffectedPositionIDs: action.AffectedPositionIDs,
		Details:             fmt.Sprintf("action=%s positions=%d", action.Type, len(action.AffectedPositionIDs)),
		Timestamp:           now,
	}
	e.writeEvent(breachEvent)
	RecordBreach(limit.Scope, eval.ExposureKind)

	if action.Type == ActionNotifyOnly {
		e.markTriggered(limit, action.Reason, now)
		e.notifyBreach(limit, eval, action, "notification only, no positions closed")
		return nil
	}

	// Закрытие позиций на платформе с ограниченным таймаутом
	closeCtx, cancel := context.WithTimeout(ctx, e.config.CloseTimeout)
	defer cancel()

	ack, err := e.trade.ClosePositions(closeCtx, limit.OwnerID, action.Tickets, action.Reason, uuid.New().String())
	if err != nil {
		// Поля срабатывания ставятся и при неудаче: пробой зафиксирован,
		// повторная попытка - забота следующего цикла
		RecordEnforcementFailure("close")
		e.markTriggered(limit, fmt.Sprintf("%s; close failed: %v", action.Reason, err), now)
		e.appendCloseFailure(breachEvent, err)
		e.notifyBreach(limit, eval, action, fmt.Sprintf("position close FAILED: %v", err))
		return fmt.Errorf("close positions for limit %d: %w", limit.ID, err)
	}

	if err := e.positions.MarkClosing(limit.OwnerID, action.AffectedPositionIDs); err != nil {
		log.Printf("executor: failed to mark positions closing for limit %d: %v", limit.ID, err)
	}

	e.writeEvent(&models.RiskEvent{
		OwnerID:             limit.OwnerID,
		LimitID:             limit.ID,
		EventType:           models.EventPositionsClosed,
		ExposurePercent:     eval.ExposurePercent,
		ThresholdPercent:    eval.ThresholdPercent,
		AccountBalance:      snap.AccountBalance,
		AffectedPositionIDs: action.AffectedPositionIDs,
		Details:             fmt.Sprintf("closed=%d already_closed=%d", len(ack.Closed), len(ack.AlreadyClosed)),
		Timestamp:           time.Now(),
	})
	PositionsClosed.Add(float64(len(ack.Closed)))

	e.markTriggered(limit, action.Reason, now)

	if limit.AutoDisableSource && limit.HasProviderScope() && limit.ProviderID != nil {
		e.disableSource(ctx, limit, eval, snap)
	}

	e.notifyBreach(limit, eval, action, fmt.Sprintf("%d position(s) closed", len(action.AffectedPositionIDs)))
	return nil
}

// reassertClose повторяет идемпотентное закрытие для уже сработавшего лимита
//
// Платформа обязана ответить no-op для уже закрытых тикетов, поэтому
// повторная отправка безопасна и не порождает новых событий аудита.
func (e *Executor) reassertClose(ctx context.Context, limit *models.RiskLimit, action Action) error {
	if action.Type == ActionNotifyOnly || len(action.Tickets) == 0 {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(ctx, e.config.CloseTimeout)
	defer cancel()

	if _, err := e.trade.ClosePositions(closeCtx, limit.OwnerID, action.Tickets, action.Reason, uuid.New().String()); err != nil {
		// Не ошибка enforcement: пробой уже зафиксирован, следующий цикл повторит
		log.Printf("executor: reassert close for limit %d failed: %v", limit.ID, err)
	}
	return nil
}

// disableSource отключает источник сигналов во внешнем реестре и локально
func (e *Executor) disableSource(ctx context.Context, limit *models.RiskLimit, eval Evaluation, snap *models.PositionSnapshot) {
	providerID := *limit.ProviderID
	reason := fmt.Sprintf("disabled by risk limit #%d (%s %.2f%%)", limit.ID, eval.ExposureKind, eval.ExposurePercent)

	disableCtx, cancel := context.WithTimeout(ctx, e.config.DisableTimeout)
	defer cancel()

	if err := e.registry.Disable(disableCtx, providerID, reason); err != nil {
		RecordEnforcementFailure("disable_source")
		log.Printf("executor: failed to disable source %d: %v", providerID, err)
		return
	}

	if err := e.sources.Disable(providerID, reason); err != nil {
		log.Printf("executor: failed to update local source %d: %v", providerID, err)
	}

	e.writeEvent(&models.RiskEvent{
		OwnerID:          limit.OwnerID,
		LimitID:          limit.ID,
		EventType:        models.EventSourceDisabled,
		ExposurePercent:  eval.ExposurePercent,
		ThresholdPercent: eval.ThresholdPercent,
		AccountBalance:   snap.AccountBalance,
		Details:          fmt.Sprintf("provider_id=%d", providerID),
		Timestamp:        time.Now(),
	})
	SourcesDisabled.Inc()
}

// markTriggered устанавливает поля срабатывания в БД и на структуре лимита
//
// Мутация структуры нужна, чтобы остаток текущего цикла (и повторный вызов
// Enforce) видел лимит сработавшим, не перечитывая его из БД.
func (e *Executor) markTriggered(limit *models.RiskLimit, reason string, at time.Time) {
	if err := e.limits.MarkTriggered(limit.ID, reason, at); err != nil {
		RecordEnforcementFailure("audit")
		log.Printf("executor: failed to mark limit %d triggered: %v", limit.ID, err)
	}
	limit.LastTriggeredAt = &at
	limit.LastTriggerReason = &reason
	ActiveBreaches.Inc()
	if e.hub != nil {
		e.hub.BroadcastBreachUpdate(limit.OwnerID, limit.ID, true, reason)
	}
}

// appendCloseFailure дописывает исход неудачного закрытия к событию детекции,
// чтобы ошибка была видна в журнале аудита, а не только в причине срабатывания
func (e *Executor) appendCloseFailure(event *models.RiskEvent, closeErr error) {
	if event.ID == 0 {
		// Запись детекции сама не удалась, дополнять нечего
		return
	}
	if err := e.events.AppendDetails(event.ID, fmt.Sprintf("; close failed: %v", closeErr)); err != nil {
		RecordEnforcementFailure("audit")
		log.Printf("executor: failed to append close failure to event %d: %v", event.ID, err)
	}
}

// writeEvent пишет событие аудита, ошибки записи не прерывают enforcement
func (e *Executor) writeEvent(event *models.RiskEvent) {
	if err := e.events.Create(event); err != nil {
		RecordEnforcementFailure("audit")
		log.Printf("executor: failed to write %s event for limit %d: %v", event.EventType, event.LimitID, err)
		return
	}
	if e.hub != nil {
		e.hub.BroadcastRiskEvent(event)
	}
}

// notifyBreach отправляет уведомление о пробое в канал
func (e *Executor) notifyBreach(limit *models.RiskLimit, eval Evaluation, action Action, outcome string) {
	if e.notifications == nil {
		return
	}

	notif := &Notification{
		OwnerID:  limit.OwnerID,
		Severity: SeverityWarn,
		Message: fmt.Sprintf("🚨 Risk limit #%d breached: %s %.2f%% (threshold %.2f%%). Action: %s. %s",
			limit.ID, eval.ExposureKind, eval.ExposurePercent, eval.ThresholdPercent, action.Type, outcome),
		Meta: map[string]interface{}{
			"limit_id":          limit.ID,
			"scope":             limit.Scope,
			"exposure_percent":  eval.ExposurePercent,
			"threshold_percent": eval.ThresholdPercent,
			"action":            action.Type,
			"positions":         len(action.AffectedPositionIDs),
		},
	}

	select {
	case e.notifications <- notif:
	default:
		// Канал заполнен - уведомление дешевле потерять, чем блокировать цикл
		NotificationsDropped.Inc()
	}
}
