package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"riskguard/internal/models"
	"riskguard/internal/platform"
)

// ============ Mock LimitStore ============

type MockLimitStore struct {
	mu            sync.Mutex
	limits        map[int]*models.RiskLimit
	getErr        error
	markErr       error
	clearErr      error
	markCalls     []int
	clearCalls    []int
	lastReason    string
	lastMarkedAt  time.Time
}

func NewMockLimitStore() *MockLimitStore {
	return &MockLimitStore{
		limits: make(map[int]*models.RiskLimit),
	}
}

func (m *MockLimitStore) Add(limit *models.RiskLimit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits[limit.ID] = limit
}

func (m *MockLimitStore) GetActive() ([]*models.RiskLimit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.RiskLimit, 0, len(m.limits))
	for _, l := range m.limits {
		if l.IsActive {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *MockLimitStore) MarkTriggered(id int, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.markCalls = append(m.markCalls, id)
	m.lastReason = reason
	m.lastMarkedAt = at
	if l, ok := m.limits[id]; ok {
		l.LastTriggeredAt = &at
		l.LastTriggerReason = &reason
	}
	return nil
}

func (m *MockLimitStore) ClearTrigger(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.clearCalls = append(m.clearCalls, id)
	if l, ok := m.limits[id]; ok {
		l.LastTriggeredAt = nil
		l.LastTriggerReason = nil
	}
	return nil
}

func (m *MockLimitStore) MarkCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.markCalls...)
}

func (m *MockLimitStore) ClearCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.clearCalls...)
}

// ============ Mock EventStore ============

type MockEventStore struct {
	mu        sync.Mutex
	events    []*models.RiskEvent
	createErr error
	appendErr error
	sinceErr  error
}

func NewMockEventStore() *MockEventStore {
	return &MockEventStore{
		events: make([]*models.RiskEvent, 0),
	}
}

func (m *MockEventStore) Create(event *models.RiskEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	event.ID = len(m.events) + 1
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventStore) AppendDetails(eventID int, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	for _, e := range m.events {
		if e.ID == eventID {
			e.Details += details
			return nil
		}
	}
	return errors.New("event not found")
}

func (m *MockEventStore) HasEventSince(limitID int, eventType string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sinceErr != nil {
		return false, m.sinceErr
	}
	for _, e := range m.events {
		if e.LimitID == limitID && e.EventType == eventType && !e.Timestamp.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockEventStore) Events() []*models.RiskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.RiskEvent(nil), m.events...)
}

func (m *MockEventStore) EventsOfType(eventType string) []*models.RiskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.RiskEvent
	for _, e := range m.events {
		if e.EventType == eventType {
			result = append(result, e)
		}
	}
	return result
}

// ============ Mock SourceStore ============

type MockSourceStore struct {
	mu         sync.Mutex
	disabled   map[int]string
	disableErr error
}

func NewMockSourceStore() *MockSourceStore {
	return &MockSourceStore{
		disabled: make(map[int]string),
	}
}

func (m *MockSourceStore) Disable(providerID int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disableErr != nil {
		return m.disableErr
	}
	m.disabled[providerID] = reason
	return nil
}

func (m *MockSourceStore) DisabledReason(providerID int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reason, ok := m.disabled[providerID]
	return reason, ok
}

// ============ Mock PositionStore ============

type MockPositionStore struct {
	mu       sync.Mutex
	closing  map[int][]int64
	markErr  error
}

func NewMockPositionStore() *MockPositionStore {
	return &MockPositionStore{
		closing: make(map[int][]int64),
	}
}

func (m *MockPositionStore) MarkClosing(ownerID int, positionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	m.closing[ownerID] = append(m.closing[ownerID], positionIDs...)
	return nil
}

func (m *MockPositionStore) Closing(ownerID int) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.closing[ownerID]...)
}

// ============ Mock TradePlatform ============

type closeCall struct {
	ownerID        int
	tickets        []int64
	reason         string
	idempotencyKey string
}

type MockTradePlatform struct {
	mu       sync.Mutex
	calls    []closeCall
	closeErr error
}

func NewMockTradePlatform() *MockTradePlatform {
	return &MockTradePlatform{}
}

func (m *MockTradePlatform) ClosePositions(ctx context.Context, ownerID int, tickets []int64, reason, idempotencyKey string) (*platform.CloseAck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, closeCall{
		ownerID:        ownerID,
		tickets:        append([]int64(nil), tickets...),
		reason:         reason,
		idempotencyKey: idempotencyKey,
	})
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	return &platform.CloseAck{Closed: append([]int64(nil), tickets...)}, nil
}

func (m *MockTradePlatform) Calls() []closeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]closeCall(nil), m.calls...)
}

// ============ Mock SourceRegistry ============

type MockSourceRegistry struct {
	mu         sync.Mutex
	disabled   map[int]string
	disableErr error
}

func NewMockSourceRegistry() *MockSourceRegistry {
	return &MockSourceRegistry{
		disabled: make(map[int]string),
	}
}

func (m *MockSourceRegistry) Disable(ctx context.Context, providerID int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disableErr != nil {
		return m.disableErr
	}
	m.disabled[providerID] = reason
	return nil
}

func (m *MockSourceRegistry) Disabled(providerID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.disabled[providerID]
	return ok
}

// ============ Mock SnapshotProvider ============

type MockSnapshotProvider struct {
	mu        sync.Mutex
	snapshots map[int]*models.PositionSnapshot
	errs      map[int]error
	requests  []int
}

func NewMockSnapshotProvider() *MockSnapshotProvider {
	return &MockSnapshotProvider{
		snapshots: make(map[int]*models.PositionSnapshot),
		errs:      make(map[int]error),
	}
}

func (m *MockSnapshotProvider) SetSnapshot(ownerID int, snap *models.PositionSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[ownerID] = snap
}

func (m *MockSnapshotProvider) SetError(ownerID int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[ownerID] = err
}

func (m *MockSnapshotProvider) GetSnapshot(ctx context.Context, ownerID int) (*models.PositionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, ownerID)
	if err, ok := m.errs[ownerID]; ok {
		return nil, err
	}
	if snap, ok := m.snapshots[ownerID]; ok {
		return snap, nil
	}
	return nil, platform.ErrSnapshotUnavailable
}

func (m *MockSnapshotProvider) Requests() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.requests...)
}

// ============ Mock Broadcaster ============

type breachUpdate struct {
	ownerID   int
	limitID   int
	triggered bool
	reason    string
}

type MockBroadcaster struct {
	mu       sync.Mutex
	received []interface{}
	events   []*models.RiskEvent
	breaches []breachUpdate
}

func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{}
}

func (m *MockBroadcaster) BroadcastNotification(notif interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, notif)
}

func (m *MockBroadcaster) BroadcastRiskEvent(event *models.RiskEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockBroadcaster) BroadcastBreachUpdate(ownerID, limitID int, triggered bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breaches = append(m.breaches, breachUpdate{ownerID, limitID, triggered, reason})
}

func (m *MockBroadcaster) Received() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]interface{}(nil), m.received...)
}

func (m *MockBroadcaster) Events() []*models.RiskEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.RiskEvent(nil), m.events...)
}

func (m *MockBroadcaster) Breaches() []breachUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]breachUpdate(nil), m.breaches...)
}

// ============ Mock Notifier ============

type MockNotifier struct {
	mu       sync.Mutex
	messages map[int][]string
	sendErr  error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		messages: make(map[int][]string),
	}
}

func (m *MockNotifier) Send(ctx context.Context, ownerID int, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.messages[ownerID] = append(m.messages[ownerID], message)
	return nil
}

func (m *MockNotifier) Messages(ownerID int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages[ownerID]...)
}

// ============ Helper functions ============

func fptr(v float64) *float64 {
	return &v
}

func iptr(v int) *int {
	return &v
}
