package engine

import (
	"context"
	"log"
	"time"

	"riskguard/internal/models"
	"riskguard/internal/platform"
)

// Notification - уведомление о событии движка для владельца
type Notification struct {
	OwnerID   int                    `json:"owner_id"`
	Severity  string                 `json:"severity"` // info, warn, error
	Message   string                 `json:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// Broadcaster - интерфейс для отправки событий на дашборд
//
// Позволяет избежать циклической зависимости engine -> websocket
// и подставить mock в тестах.
type Broadcaster interface {
	BroadcastNotification(notif interface{})
	BroadcastRiskEvent(event *models.RiskEvent)
	BroadcastBreachUpdate(ownerID, limitID int, triggered bool, reason string)
}

// Dispatcher разбирает канал уведомлений движка
//
// Исполнитель кладёт уведомления в буферизованный канал и никогда не ждёт
// доставки; диспетчер в отдельной горутине доводит их до внешнего канала
// (Telegram) и до подключенных WebSocket клиентов. Ошибки доставки только
// логируются - enforcement они не трогают.
type Dispatcher struct {
	notifications <-chan *Notification
	notifier      platform.Notifier
	hub           Broadcaster
	sendTimeout   time.Duration
}

// NewDispatcher создаёт диспетчер уведомлений
func NewDispatcher(notifications <-chan *Notification, notifier platform.Notifier, hub Broadcaster) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		notifier:      notifier,
		hub:           hub,
		sendTimeout:   10 * time.Second,
	}
}

// Run запускает цикл доставки; должен работать в отдельной горутине
//
// Завершается при отмене контекста. Уведомления, оставшиеся в канале
// на момент остановки, не доставляются.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-d.notifications:
			if !ok {
				return
			}
			d.deliver(ctx, notif)
		}
	}
}

// deliver доставляет одно уведомление во все каналы
func (d *Dispatcher) deliver(ctx context.Context, notif *Notification) {
	if notif.Timestamp.IsZero() {
		notif.Timestamp = time.Now()
	}

	if d.hub != nil {
		d.hub.BroadcastNotification(notif)
	}

	if d.notifier == nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.notifier.Send(sendCtx, notif.OwnerID, notif.Message); err != nil {
		NotificationFailures.Inc()
		log.Printf("dispatcher: failed to notify owner %d: %v", notif.OwnerID, err)
	}
}
