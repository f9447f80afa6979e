package engine

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"riskguard/internal/models"
	"riskguard/internal/platform"
)

// MonitorConfig - конфигурация цикла мониторинга
type MonitorConfig struct {
	// Interval - период между циклами
	Interval time.Duration

	// SnapshotTimeout ограничивает запрос снимка счёта
	SnapshotTimeout time.Duration
}

// DefaultMonitorConfig возвращает конфигурацию по умолчанию
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:        30 * time.Second,
		SnapshotTimeout: 10 * time.Second,
	}
}

// Monitor - периодический планировщик проверки лимитов
//
// Каждый цикл: активные лимиты -> множество владельцев -> на владельца
// один снимок счёта и полный конвейер оценщик -> резолвер -> исполнитель
// для каждого его лимита. Владельцы обрабатываются параллельно и изолированно:
// сбой одного не прерывает цикл для остальных. Порядок владельцев не
// гарантируется.
//
// Монитор - явный объект со Start/Stop, а не голый таймер: тесты гоняют
// одиночные циклы через RunCycle детерминированно, без ожидания тиков.
type Monitor struct {
	limits    LimitStore
	snapshots platform.SnapshotProvider
	executor  *Executor
	locks     *LockArena
	config    MonitorConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor создаёт монитор лимитов
func NewMonitor(limits LimitStore, snapshots platform.SnapshotProvider, executor *Executor, locks *LockArena, config MonitorConfig) *Monitor {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.SnapshotTimeout <= 0 {
		config.SnapshotTimeout = 10 * time.Second
	}
	return &Monitor{
		limits:    limits,
		snapshots: snapshots,
		executor:  executor,
		locks:     locks,
		config:    config,
		stopCh:    make(chan struct{}),
	}
}

// Start запускает периодический цикл; должен работать в отдельной горутине
//
// При остановке (Stop или отмена контекста) дожидается завершения задач
// текущего цикла: уже отправленные команды закрытия не бросаются на полпути.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	log.Printf("monitor: started, interval %v", m.config.Interval)

	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			log.Printf("monitor: stopped (context cancelled)")
			return
		case <-m.stopCh:
			m.wg.Wait()
			log.Printf("monitor: stopped")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// Stop останавливает монитор
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// RunCycle выполняет один полный цикл мониторинга
//
// Экспортирован отдельно от Start, чтобы тесты управляли циклами без таймера.
// Блокируется до завершения всех владельцев цикла.
func (m *Monitor) RunCycle(ctx context.Context) {
	started := time.Now()
	defer func() {
		CycleDuration.Observe(time.Since(started).Seconds())
		CyclesTotal.Inc()
	}()

	active, err := m.limits.GetActive()
	if err != nil {
		log.Printf("monitor: failed to load active limits: %v", err)
		return
	}
	if len(active) == 0 {
		return
	}

	// Лимиты группируются по владельцу: один снимок на владельца за цикл
	byOwner := make(map[int][]*models.RiskLimit)
	for _, limit := range active {
		byOwner[limit.OwnerID] = append(byOwner[limit.OwnerID], limit)
	}

	// Enforcement не должен обрываться на середине при остановке процесса,
	// поэтому задачи владельцев получают контекст, переживающий отмену
	workCtx := context.WithoutCancel(ctx)

	for ownerID, limits := range byOwner {
		m.wg.Add(1)
		go func(ownerID int, limits []*models.RiskLimit) {
			defer m.wg.Done()
			m.checkOwner(workCtx, ownerID, limits)
		}(ownerID, limits)
	}

	m.wg.Wait()
}

// checkOwner прогоняет конвейер для всех лимитов одного владельца
func (m *Monitor) checkOwner(ctx context.Context, ownerID int, limits []*models.RiskLimit) {
	defer func() {
		if r := recover(); r != nil {
			// Паника одного владельца не роняет планировщик
			log.Printf("monitor: panic while checking owner %d: %v", ownerID, r)
		}
	}()

	snapCtx, cancel := context.WithTimeout(ctx, m.config.SnapshotTimeout)
	defer cancel()

	snapStarted := time.Now()
	snap, err := m.snapshots.GetSnapshot(snapCtx, ownerID)
	SnapshotLatency.Observe(time.Since(snapStarted).Seconds())

	if err != nil {
		if errors.Is(err, platform.ErrSnapshotUnavailable) {
			RecordOwnerSkipped("snapshot_unavailable")
		} else {
			RecordOwnerSkipped("snapshot_error")
			log.Printf("monitor: snapshot for owner %d failed: %v", ownerID, err)
		}
		return
	}

	// Владельцу без открытых позиций защищать нечего
	if !snap.HasOpenPositions() {
		RecordOwnerSkipped("no_positions")
		return
	}

	for _, limit := range limits {
		m.checkLimit(ctx, limit, snap)
	}
}

// checkLimit выполняет "оценить -> решить -> пометить сработавшим" под
// мьютексом лимита
func (m *Monitor) checkLimit(ctx context.Context, limit *models.RiskLimit, snap *models.PositionSnapshot) {
	m.locks.Lock(limit.ID)
	defer m.locks.Unlock(limit.ID)

	eval := Evaluate(limit, snap)

	// Сработавший лимит, условие которого ушло, перевзводится автоматически:
	// новый пробой того же лимита снова станет отдельным событием
	if limit.Triggered() && !eval.Violated {
		if err := m.limits.ClearTrigger(limit.ID); err != nil {
			log.Printf("monitor: failed to clear trigger for limit %d: %v", limit.ID, err)
			return
		}
		limit.LastTriggeredAt = nil
		limit.LastTriggerReason = nil
		ActiveBreaches.Dec()
		if m.executor != nil && m.executor.hub != nil {
			m.executor.hub.BroadcastBreachUpdate(limit.OwnerID, limit.ID, false, "breach condition cleared")
		}
		log.Printf("monitor: limit %d re-armed, breach condition cleared", limit.ID)
		return
	}

	if !eval.Violated {
		return
	}

	action := Resolve(limit, eval, snap)
	if err := m.executor.Enforce(ctx, limit, eval, action, snap); err != nil {
		// Ошибка уже в аудите и уведомлениях; лимит помечен сработавшим,
		// повтор - забота следующего цикла
		log.Printf("monitor: enforcement for limit %d failed: %v", limit.ID, err)
	}
}
