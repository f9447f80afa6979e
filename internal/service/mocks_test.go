package service

import (
	"sort"
	"time"

	"riskguard/internal/models"
	"riskguard/internal/repository"
)

// ============ Mock LimitRepository ============

type MockLimitRepository struct {
	limits    map[int]*models.RiskLimit
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	resetErr  error
	nextID    int
}

func NewMockLimitRepository() *MockLimitRepository {
	return &MockLimitRepository{
		limits: make(map[int]*models.RiskLimit),
		nextID: 1,
	}
}

func (m *MockLimitRepository) Create(limit *models.RiskLimit) error {
	if m.createErr != nil {
		return m.createErr
	}
	limit.ID = m.nextID
	m.nextID++
	limit.CreatedAt = time.Now()
	limit.UpdatedAt = time.Now()
	m.limits[limit.ID] = limit
	return nil
}

func (m *MockLimitRepository) GetByID(id int) (*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit, exists := m.limits[id]; exists {
		return copyLimit(limit), nil
	}
	return nil, repository.ErrLimitNotFound
}

func (m *MockLimitRepository) GetByOwnerAndID(ownerID, id int) (*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	// Копия, как свежая строка из БД: мутации вызывающего не утекают в хранилище
	if limit, exists := m.limits[id]; exists && limit.OwnerID == ownerID {
		return copyLimit(limit), nil
	}
	return nil, repository.ErrLimitNotFound
}

func copyLimit(limit *models.RiskLimit) *models.RiskLimit {
	c := *limit
	return &c
}

func (m *MockLimitRepository) GetByOwner(ownerID, limit, offset int) ([]*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	all := m.sortedByID()
	var result []*models.RiskLimit
	for _, l := range all {
		if l.OwnerID == ownerID {
			result = append(result, l)
		}
	}
	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockLimitRepository) GetActive() ([]*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskLimit
	for _, l := range m.sortedByID() {
		if l.IsActive {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *MockLimitRepository) GetActiveByOwner(ownerID int) ([]*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskLimit
	for _, l := range m.sortedByID() {
		if l.IsActive && l.OwnerID == ownerID {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *MockLimitRepository) GetTriggered() ([]*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskLimit
	for _, l := range m.sortedByID() {
		if l.LastTriggeredAt != nil {
			result = append(result, l)
		}
	}
	return result, nil
}

func (m *MockLimitRepository) Update(limit *models.RiskLimit) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, exists := m.limits[limit.ID]; !exists {
		return repository.ErrLimitNotFound
	}
	limit.UpdatedAt = time.Now()
	m.limits[limit.ID] = limit
	return nil
}

func (m *MockLimitRepository) Delete(id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.limits[id]; !exists {
		return repository.ErrLimitNotFound
	}
	delete(m.limits, id)
	return nil
}

func (m *MockLimitRepository) MarkTriggered(id int, reason string, at time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if limit, exists := m.limits[id]; exists {
		limit.LastTriggeredAt = &at
		limit.LastTriggerReason = &reason
		return nil
	}
	return repository.ErrLimitNotFound
}

func (m *MockLimitRepository) ClearTrigger(id int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if limit, exists := m.limits[id]; exists {
		limit.LastTriggeredAt = nil
		limit.LastTriggerReason = nil
		return nil
	}
	return repository.ErrLimitNotFound
}

func (m *MockLimitRepository) Reset(id int) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	if limit, exists := m.limits[id]; exists {
		limit.IsActive = true
		limit.LastTriggeredAt = nil
		limit.LastTriggerReason = nil
		return nil
	}
	return repository.ErrLimitNotFound
}

func (m *MockLimitRepository) CountByOwner(ownerID int) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	count := 0
	for _, l := range m.limits {
		if l.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *MockLimitRepository) sortedByID() []*models.RiskLimit {
	result := make([]*models.RiskLimit, 0, len(m.limits))
	for _, l := range m.limits {
		result = append(result, l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ============ Mock EventRepository ============

type MockEventRepository struct {
	events    []*models.RiskEvent
	createErr error
	getErr    error
	nextID    int
}

func NewMockEventRepository() *MockEventRepository {
	return &MockEventRepository{
		events: make([]*models.RiskEvent, 0),
		nextID: 1,
	}
}

func (m *MockEventRepository) Create(event *models.RiskEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	event.ID = m.nextID
	m.nextID++
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockEventRepository) GetByID(id int) (*models.RiskEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, e := range m.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (m *MockEventRepository) GetByOwner(ownerID, limit, offset int) ([]*models.RiskEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	// Новые первыми, как в реальном репозитории
	var result []*models.RiskEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].OwnerID == ownerID {
			result = append(result, m.events[i])
		}
	}
	return paginateEvents(result, limit, offset), nil
}

func (m *MockEventRepository) GetByLimit(limitID, limit, offset int) ([]*models.RiskEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].LimitID == limitID {
			result = append(result, m.events[i])
		}
	}
	return paginateEvents(result, limit, offset), nil
}

func (m *MockEventRepository) CountByOwner(ownerID int) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	count := 0
	for _, e := range m.events {
		if e.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (m *MockEventRepository) EventsOfType(eventType string) []*models.RiskEvent {
	var result []*models.RiskEvent
	for _, e := range m.events {
		if e.EventType == eventType {
			result = append(result, e)
		}
	}
	return result
}

func paginateEvents(events []*models.RiskEvent, limit, offset int) []*models.RiskEvent {
	if offset >= len(events) {
		return nil
	}
	events = events[offset:]
	if len(events) > limit {
		events = events[:limit]
	}
	return events
}

// ============ Mock SourceRepository ============

type MockSourceRepository struct {
	sources   map[int]*models.SignalSource
	createErr error
	getErr    error
	updateErr error
	nextID    int
}

func NewMockSourceRepository() *MockSourceRepository {
	return &MockSourceRepository{
		sources: make(map[int]*models.SignalSource),
		nextID:  1,
	}
}

func (m *MockSourceRepository) Create(source *models.SignalSource) error {
	if m.createErr != nil {
		return m.createErr
	}
	source.ID = m.nextID
	m.nextID++
	source.CreatedAt = time.Now()
	m.sources[source.ID] = source
	return nil
}

func (m *MockSourceRepository) GetByID(id int) (*models.SignalSource, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if source, exists := m.sources[id]; exists {
		return source, nil
	}
	return nil, repository.ErrSourceNotFound
}

func (m *MockSourceRepository) GetByOwner(ownerID int) ([]*models.SignalSource, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.SignalSource
	for _, s := range m.sources {
		if s.OwnerID == ownerID {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockSourceRepository) Disable(id int, reason string) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if source, exists := m.sources[id]; exists {
		now := time.Now()
		source.IsActive = false
		source.DisabledReason = &reason
		source.DisabledAt = &now
		return nil
	}
	return repository.ErrSourceNotFound
}

func (m *MockSourceRepository) Enable(id int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if source, exists := m.sources[id]; exists {
		source.IsActive = true
		source.DisabledReason = nil
		source.DisabledAt = nil
		return nil
	}
	return repository.ErrSourceNotFound
}

// ============ Helper functions ============

func fptr(v float64) *float64 {
	return &v
}

func iptr(v int) *int {
	return &v
}

func sptr(v string) *string {
	return &v
}

func bptr(v bool) *bool {
	return &v
}
