package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"riskguard/internal/models"
)

func newLimitService() (*LimitService, *MockLimitRepository, *MockEventRepository) {
	limitRepo := NewMockLimitRepository()
	eventRepo := NewMockEventRepository()
	return NewLimitService(limitRepo, eventRepo), limitRepo, eventRepo
}

// TestCreateLimitValidation проверяет матрицу валидации определения лимита
func TestCreateLimitValidation(t *testing.T) {
	tests := []struct {
		name    string
		limit   *models.RiskLimit
		wantErr error
	}{
		{
			"valid global",
			&models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)},
			nil,
		},
		{
			"valid provider",
			&models.RiskLimit{Scope: models.ScopeProvider, ProviderID: iptr(7), MaxLossPercent: fptr(10)},
			nil,
		},
		{
			"valid symbol",
			&models.RiskLimit{Scope: models.ScopeSymbol, Symbol: "EURUSD", MaxGainPercent: fptr(20)},
			nil,
		},
		{
			"valid provider_symbol",
			&models.RiskLimit{Scope: models.ScopeProviderSymbol, ProviderID: iptr(7), Symbol: "EURUSD", MaxDrawdownPercent: fptr(15)},
			nil,
		},
		{
			"unknown scope",
			&models.RiskLimit{Scope: "galaxy", MaxLossPercent: fptr(10)},
			ErrInvalidScope,
		},
		{
			"global with provider_id",
			&models.RiskLimit{Scope: models.ScopeGlobal, ProviderID: iptr(7), MaxLossPercent: fptr(10)},
			ErrScopeFieldConflict,
		},
		{
			"global with symbol",
			&models.RiskLimit{Scope: models.ScopeGlobal, Symbol: "EURUSD", MaxLossPercent: fptr(10)},
			ErrScopeFieldConflict,
		},
		{
			"provider without provider_id",
			&models.RiskLimit{Scope: models.ScopeProvider, MaxLossPercent: fptr(10)},
			ErrProviderRequired,
		},
		{
			"provider with symbol",
			&models.RiskLimit{Scope: models.ScopeProvider, ProviderID: iptr(7), Symbol: "EURUSD", MaxLossPercent: fptr(10)},
			ErrScopeFieldConflict,
		},
		{
			"symbol without symbol",
			&models.RiskLimit{Scope: models.ScopeSymbol, MaxLossPercent: fptr(10)},
			ErrSymbolRequired,
		},
		{
			"symbol with provider_id",
			&models.RiskLimit{Scope: models.ScopeSymbol, Symbol: "EURUSD", ProviderID: iptr(7), MaxLossPercent: fptr(10)},
			ErrScopeFieldConflict,
		},
		{
			"provider_symbol without provider_id",
			&models.RiskLimit{Scope: models.ScopeProviderSymbol, Symbol: "EURUSD", MaxLossPercent: fptr(10)},
			ErrProviderRequired,
		},
		{
			"provider_symbol without symbol",
			&models.RiskLimit{Scope: models.ScopeProviderSymbol, ProviderID: iptr(7), MaxLossPercent: fptr(10)},
			ErrSymbolRequired,
		},
		{
			"no thresholds",
			&models.RiskLimit{Scope: models.ScopeGlobal},
			ErrNoThreshold,
		},
		{
			"negative threshold",
			&models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(-1)},
			ErrInvalidPercent,
		},
		{
			"threshold above 100",
			&models.RiskLimit{Scope: models.ScopeGlobal, MaxGainPercent: fptr(101)},
			ErrInvalidPercent,
		},
		{
			"threshold boundaries 0 and 100 are valid",
			&models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(0), MaxGainPercent: fptr(100)},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newLimitService()
			err := svc.CreateLimit(1, tt.limit)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateLimit: got error %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && tt.limit.ID == 0 {
				t.Error("valid limit should get an ID")
			}
		})
	}
}

// TestCreateLimitClearsTriggerFields проверяет что клиент не может создать
// лимит сразу в состоянии пробоя
func TestCreateLimitClearsTriggerFields(t *testing.T) {
	svc, limitRepo, _ := newLimitService()

	now := time.Now()
	reason := "forged"
	limit := &models.RiskLimit{
		Scope:             models.ScopeGlobal,
		MaxLossPercent:    fptr(10),
		LastTriggeredAt:   &now,
		LastTriggerReason: &reason,
	}

	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	stored, _ := limitRepo.GetByID(limit.ID)
	if stored.LastTriggeredAt != nil || stored.LastTriggerReason != nil {
		t.Error("trigger fields must be cleared on create")
	}
	if stored.OwnerID != 1 {
		t.Errorf("OwnerID = %d, want 1", stored.OwnerID)
	}
}

// TestGetLimitOwnerIsolation проверяет что чужой лимит неотличим
// от несуществующего
func TestGetLimitOwnerIsolation(t *testing.T) {
	svc, _, _ := newLimitService()

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	if _, err := svc.GetLimit(1, limit.ID); err != nil {
		t.Errorf("owner should see own limit: %v", err)
	}

	if _, err := svc.GetLimit(2, limit.ID); !errors.Is(err, ErrLimitNotFound) {
		t.Errorf("foreign limit: got error %v, want %v", err, ErrLimitNotFound)
	}

	if _, err := svc.GetLimit(1, 9999); !errors.Is(err, ErrLimitNotFound) {
		t.Errorf("missing limit: got error %v, want %v", err, ErrLimitNotFound)
	}
}

// TestGetLimitsPagination проверяет нормализацию параметров пагинации
func TestGetLimitsPagination(t *testing.T) {
	svc, _, _ := newLimitService()

	for i := 0; i < 3; i++ {
		limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
		if err := svc.CreateLimit(1, limit); err != nil {
			t.Fatalf("CreateLimit failed: %v", err)
		}
	}

	// Нулевой limit и отрицательный offset нормализуются
	limits, err := svc.GetLimits(1, 0, -10)
	if err != nil {
		t.Fatalf("GetLimits failed: %v", err)
	}
	if len(limits) != 3 {
		t.Errorf("got %d limits, want 3", len(limits))
	}

	limits, err = svc.GetLimits(1, 2, 1)
	if err != nil {
		t.Fatalf("GetLimits failed: %v", err)
	}
	if len(limits) != 2 {
		t.Errorf("got %d limits, want 2 with limit=2 offset=1", len(limits))
	}
}

// TestUpdateLimit проверяет частичное обновление и повторную валидацию
func TestUpdateLimit(t *testing.T) {
	svc, _, _ := newLimitService()

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	updated, err := svc.UpdateLimit(1, limit.ID, UpdateLimitParams{
		MaxLossPercent: fptr(5),
		NotifyOnly:     bptr(true),
	})
	if err != nil {
		t.Fatalf("UpdateLimit failed: %v", err)
	}
	if *updated.MaxLossPercent != 5 {
		t.Errorf("MaxLossPercent = %v, want 5", *updated.MaxLossPercent)
	}
	if !updated.NotifyOnly {
		t.Error("NotifyOnly should be true")
	}
	if updated.Scope != models.ScopeGlobal {
		t.Errorf("untouched Scope changed to %q", updated.Scope)
	}
}

// TestUpdateLimitRejectsInvalid проверяет что обновление, делающее
// определение несогласованным, отклоняется
func TestUpdateLimitRejectsInvalid(t *testing.T) {
	svc, _, _ := newLimitService()

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	// provider scope без provider_id
	if _, err := svc.UpdateLimit(1, limit.ID, UpdateLimitParams{
		Scope: sptr(models.ScopeProvider),
	}); !errors.Is(err, ErrProviderRequired) {
		t.Errorf("got error %v, want %v", err, ErrProviderRequired)
	}

	// Порог вне диапазона
	if _, err := svc.UpdateLimit(1, limit.ID, UpdateLimitParams{
		MaxLossPercent: fptr(150),
	}); !errors.Is(err, ErrInvalidPercent) {
		t.Errorf("got error %v, want %v", err, ErrInvalidPercent)
	}
}

// TestUpdateLimitOwnerIsolation проверяет что чужой лимит нельзя обновить
func TestUpdateLimitOwnerIsolation(t *testing.T) {
	svc, _, _ := newLimitService()

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	if _, err := svc.UpdateLimit(2, limit.ID, UpdateLimitParams{
		MaxLossPercent: fptr(5),
	}); !errors.Is(err, ErrLimitNotFound) {
		t.Errorf("got error %v, want %v", err, ErrLimitNotFound)
	}
}

// TestDeleteLimit проверяет удаление и изоляцию владельцев
func TestDeleteLimit(t *testing.T) {
	svc, _, _ := newLimitService()

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	if err := svc.DeleteLimit(2, limit.ID); !errors.Is(err, ErrLimitNotFound) {
		t.Errorf("foreign delete: got error %v, want %v", err, ErrLimitNotFound)
	}

	if err := svc.DeleteLimit(1, limit.ID); err != nil {
		t.Fatalf("DeleteLimit failed: %v", err)
	}

	if _, err := svc.GetLimit(1, limit.ID); !errors.Is(err, ErrLimitNotFound) {
		t.Error("deleted limit should be gone")
	}
}

// TestResetLimit проверяет административный перевзвод сработавшего лимита
func TestResetLimit(t *testing.T) {
	svc, limitRepo, eventRepo := newLimitService()

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}
	if err := limitRepo.MarkTriggered(limit.ID, "loss 25.00% exceeds 10.00%", time.Now()); err != nil {
		t.Fatalf("MarkTriggered failed: %v", err)
	}

	reset, err := svc.ResetLimit(1, limit.ID, "alice", "manual review done")
	if err != nil {
		t.Fatalf("ResetLimit failed: %v", err)
	}

	if reset.LastTriggeredAt != nil || reset.LastTriggerReason != nil {
		t.Error("trigger fields must be cleared after reset")
	}
	if !reset.IsActive {
		t.Error("reset limit must be active")
	}

	events := eventRepo.EventsOfType(models.EventAdminReset)
	if len(events) != 1 {
		t.Fatalf("admin_reset events = %d, want 1", len(events))
	}
	if !strings.Contains(events[0].Details, "alice") || !strings.Contains(events[0].Details, "manual review done") {
		t.Errorf("event details %q must name the admin and the reason", events[0].Details)
	}
}

// TestResetLimitNoopStillAudited проверяет что сброс несработавшего лимита
// всё равно оставляет след в аудите
func TestResetLimitNoopStillAudited(t *testing.T) {
	svc, _, eventRepo := newLimitService()

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	if _, err := svc.ResetLimit(1, limit.ID, "bob", ""); err != nil {
		t.Fatalf("ResetLimit failed: %v", err)
	}

	events := eventRepo.EventsOfType(models.EventAdminReset)
	if len(events) != 1 {
		t.Fatalf("admin_reset events = %d, want 1 even for a no-op reset", len(events))
	}
}

// TestResetLimitAuditFailure проверяет что сбой записи аудита после
// применённого сброса возвращается как ошибка
func TestResetLimitAuditFailure(t *testing.T) {
	svc, _, eventRepo := newLimitService()
	eventRepo.createErr = errors.New("database down")

	limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
	if err := svc.CreateLimit(1, limit); err != nil {
		t.Fatalf("CreateLimit failed: %v", err)
	}

	_, err := svc.ResetLimit(1, limit.ID, "alice", "")
	if err == nil {
		t.Fatal("expected error when audit write fails")
	}
	if !strings.Contains(err.Error(), "audit write failed") {
		t.Errorf("error %q should mention the audit failure", err)
	}
}

// TestGetBreaches проверяет кросс-владельческий обзор пробоев
func TestGetBreaches(t *testing.T) {
	svc, limitRepo, _ := newLimitService()

	for owner := 1; owner <= 3; owner++ {
		limit := &models.RiskLimit{Scope: models.ScopeGlobal, MaxLossPercent: fptr(10)}
		if err := svc.CreateLimit(owner, limit); err != nil {
			t.Fatalf("CreateLimit failed: %v", err)
		}
		if owner != 2 {
			if err := limitRepo.MarkTriggered(limit.ID, "breach", time.Now()); err != nil {
				t.Fatalf("MarkTriggered failed: %v", err)
			}
		}
	}

	breaches, err := svc.GetBreaches()
	if err != nil {
		t.Fatalf("GetBreaches failed: %v", err)
	}
	if len(breaches) != 2 {
		t.Errorf("breaches = %d, want 2", len(breaches))
	}
}
