package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"testing"

	"github.com/gorilla/mux"

	"riskguard/internal/api/middleware"
	"riskguard/internal/models"
	"riskguard/internal/service"
)

// ErrMockDatabase имитирует инфраструктурную ошибку в тестах
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock LimitService ============

type MockLimitService struct {
	limits    map[int]*models.RiskLimit
	nextID    int
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	resetErr  error

	lastResetAdmin  string
	lastResetReason string
}

func NewMockLimitService() *MockLimitService {
	return &MockLimitService{
		limits: make(map[int]*models.RiskLimit),
		nextID: 1,
	}
}

func (m *MockLimitService) AddLimit(ownerID int, limit *models.RiskLimit) *models.RiskLimit {
	limit.ID = m.nextID
	m.nextID++
	limit.OwnerID = ownerID
	m.limits[limit.ID] = limit
	return limit
}

func (m *MockLimitService) CreateLimit(ownerID int, limit *models.RiskLimit) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.AddLimit(ownerID, limit)
	return nil
}

func (m *MockLimitService) GetLimit(ownerID, id int) (*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit, exists := m.limits[id]; exists && limit.OwnerID == ownerID {
		return limit, nil
	}
	return nil, service.ErrLimitNotFound
}

func (m *MockLimitService) GetLimits(ownerID, limit, offset int) ([]*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskLimit
	for _, l := range m.limits {
		if l.OwnerID == ownerID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockLimitService) UpdateLimit(ownerID, id int, params service.UpdateLimitParams) (*models.RiskLimit, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	limit, err := m.GetLimit(ownerID, id)
	if err != nil {
		return nil, err
	}
	if params.MaxLossPercent != nil {
		limit.MaxLossPercent = params.MaxLossPercent
	}
	if params.IsActive != nil {
		limit.IsActive = *params.IsActive
	}
	if params.NotifyOnly != nil {
		limit.NotifyOnly = *params.NotifyOnly
	}
	return limit, nil
}

func (m *MockLimitService) DeleteLimit(ownerID, id int) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, err := m.GetLimit(ownerID, id); err != nil {
		return err
	}
	delete(m.limits, id)
	return nil
}

func (m *MockLimitService) ResetLimit(ownerID, limitID int, adminName, reason string) (*models.RiskLimit, error) {
	if m.resetErr != nil {
		return nil, m.resetErr
	}
	limit, err := m.GetLimit(ownerID, limitID)
	if err != nil {
		return nil, err
	}
	m.lastResetAdmin = adminName
	m.lastResetReason = reason
	limit.IsActive = true
	limit.LastTriggeredAt = nil
	limit.LastTriggerReason = nil
	return limit, nil
}

func (m *MockLimitService) GetBreaches() ([]*models.RiskLimit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskLimit
	for _, l := range m.limits {
		if l.LastTriggeredAt != nil {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ============ Mock EventService ============

type MockEventService struct {
	events []*models.RiskEvent
	nextID int
	getErr error
}

func NewMockEventService() *MockEventService {
	return &MockEventService{nextID: 1}
}

func (m *MockEventService) AddEvent(event *models.RiskEvent) *models.RiskEvent {
	event.ID = m.nextID
	m.nextID++
	m.events = append(m.events, event)
	return event
}

func (m *MockEventService) GetEvents(ownerID, limit, offset int) ([]*models.RiskEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskEvent
	for _, e := range m.events {
		if e.OwnerID == ownerID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockEventService) GetEvent(ownerID, id int) (*models.RiskEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, e := range m.events {
		if e.ID == id && e.OwnerID == ownerID {
			return e, nil
		}
	}
	return nil, service.ErrEventNotFound
}

func (m *MockEventService) GetLimitHistory(ownerID, limitID, limit, offset int) ([]*models.RiskEvent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var result []*models.RiskEvent
	for _, e := range m.events {
		if e.OwnerID == ownerID && e.LimitID == limitID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockEventService) CountEvents(ownerID int) (int, error) {
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

// ============ Mock CheckService ============

type MockCheckService struct {
	result      *service.CheckResult
	err         error
	lastOwnerID int
	lastRequest service.CheckRequest
}

func NewMockCheckService() *MockCheckService {
	return &MockCheckService{
		result: &service.CheckResult{Status: service.CheckStatusSafe},
	}
}

func (m *MockCheckService) RunCheck(ownerID int, req service.CheckRequest) (*service.CheckResult, error) {
	m.lastOwnerID = ownerID
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// ============ Mock SourceService ============

type MockSourceService struct {
	sources map[int]*models.SignalSource
	nextID  int
	getErr  error
}

func NewMockSourceService() *MockSourceService {
	return &MockSourceService{
		sources: make(map[int]*models.SignalSource),
		nextID:  1,
	}
}

func (m *MockSourceService) AddSource(ownerID int, source *models.SignalSource) *models.SignalSource {
	source.ID = m.nextID
	m.nextID++
	source.OwnerID = ownerID
	m.sources[source.ID] = source
	return source
}

func (m *MockSourceService) GetSources(ownerID int) ([]*models.SignalSource, error) {
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

func (m *MockSourceService) EnableSource(ownerID, id int) (*models.SignalSource, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if source, exists := m.sources[id]; exists && source.OwnerID == ownerID {
		source.IsActive = true
		source.DisabledReason = nil
		source.DisabledAt = nil
		return source, nil
	}
	return nil, service.ErrSourceNotFound
}

// ============ Проверки реализации интерфейсов ============

var (
	_ service.LimitServiceInterface  = (*MockLimitService)(nil)
	_ service.EventServiceInterface  = (*MockEventService)(nil)
	_ service.CheckServiceInterface  = (*MockCheckService)(nil)
	_ service.SourceServiceInterface = (*MockSourceService)(nil)
)

// ============ Helper functions ============

func fptr(v float64) *float64 {
	return &v
}

func bptr(v bool) *bool {
	return &v
}

// serveAsOwner прогоняет запрос через OwnerAuth middleware и handler
//
// Параметры пути подставляются через mux.SetURLVars, как их видел бы
// handler за настоящим роутером.
func serveAsOwner(handler http.HandlerFunc, req *http.Request, ownerID int, vars map[string]string) *httptest.ResponseRecorder {
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	req.Header.Set(middleware.HeaderOwnerID, strconv.Itoa(ownerID))
	w := httptest.NewRecorder()
	middleware.OwnerAuth(handler).ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, payload interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	return bytes.NewReader(data)
}
