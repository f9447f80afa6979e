package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskguard/internal/models"
	"riskguard/pkg/crypto"
	"riskguard/pkg/ratelimit"
	"riskguard/pkg/retry"
)

// Быстрый JSON кодек для горячего пути моста
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AccountStore - доступ к учётным данным владельцев на платформе
type AccountStore interface {
	GetByOwner(ownerID int) (*models.PlatformAccount, error)
}

// BridgeConfig - конфигурация моста торговой платформы
type BridgeConfig struct {
	// BaseURL - адрес API моста, например http://bridge:8090
	BaseURL string

	// RateLimit - запросов в секунду к мосту
	RateLimit float64

	// Burst - размер всплеска для rate limiter
	Burst float64

	HTTP HTTPClientConfig
}

// DefaultBridgeConfig возвращает конфигурацию по умолчанию
func DefaultBridgeConfig(baseURL string) BridgeConfig {
	return BridgeConfig{
		BaseURL:   baseURL,
		RateLimit: 10,
		Burst:     20,
		HTTP:      DefaultHTTPClientConfig(),
	}
}

// Bridge - HTTP клиент торговой платформы
//
// Реализует SnapshotProvider, TradePlatform и SourceRegistry поверх REST API
// моста. Токен владельца хранится в БД зашифрованным и расшифровывается
// на каждый запрос (см. pkg/crypto).
//
// Запросы снимков (только чтение) ретраятся с экспоненциальным backoff.
// Команды закрытия НЕ ретраятся здесь: повтор - забота следующего цикла
// мониторинга, идемпотентность обеспечивается ключом Idempotency-Key.
type Bridge struct {
	baseURL  string
	client   *http.Client
	limiter  *ratelimit.RateLimiter
	accounts AccountStore
	cryptKey []byte
}

// NewBridge создаёт мост торговой платформы
func NewBridge(config BridgeConfig, accounts AccountStore, cryptKey []byte) *Bridge {
	return &Bridge{
		baseURL:  config.BaseURL,
		client:   NewHTTPClient(config.HTTP),
		limiter:  ratelimit.NewRateLimiter(config.RateLimit, config.Burst),
		accounts: accounts,
		cryptKey: cryptKey,
	}
}

// ============================================================
// SnapshotProvider
// ============================================================

// snapshotResponse - ответ моста на запрос снимка
type snapshotResponse struct {
	AccountBalance   float64 `json:"account_balance"`
	PeakBalance      float64 `json:"peak_balance"`
	StartOfDayEquity float64 `json:"start_of_day_equity"`
	Positions        []struct {
		ID               int64   `json:"id"`
		ExternalTicket   int64   `json:"external_ticket"`
		Symbol           string  `json:"symbol"`
		SourceProviderID int     `json:"source_provider_id"`
		UnrealizedProfit float64 `json:"unrealized_profit"`
	} `json:"positions"`
}

// GetSnapshot запрашивает текущее состояние счёта владельца
func (b *Bridge) GetSnapshot(ctx context.Context, ownerID int) (*models.PositionSnapshot, error) {
	token, err := b.ownerToken(ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}

	url := fmt.Sprintf("%s/api/v1/accounts/%d/snapshot", b.baseURL, ownerID)

	var resp snapshotResponse

	// Чтение безопасно ретраить: у запроса нет побочных эффектов
	cfg := retry.ConservativeConfig()
	err = retry.Do(ctx, func() error {
		return b.getJSON(ctx, url, token, &resp)
	}, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}

	snap := &models.PositionSnapshot{
		OwnerID:          ownerID,
		AccountBalance:   resp.AccountBalance,
		PeakBalance:      resp.PeakBalance,
		StartOfDayEquity: resp.StartOfDayEquity,
		Positions:        make([]models.OpenPosition, 0, len(resp.Positions)),
		TakenAt:          time.Now(),
	}
	for _, p := range resp.Positions {
		snap.Positions = append(snap.Positions, models.OpenPosition{
			ID:               p.ID,
			ExternalTicket:   p.ExternalTicket,
			Symbol:           p.Symbol,
			SourceProviderID: p.SourceProviderID,
			UnrealizedProfit: p.UnrealizedProfit,
		})
	}
	return snap, nil
}

// ============================================================
// TradePlatform
// ============================================================

// closeRequest - команда закрытия позиций
type closeRequest struct {
	Tickets []int64 `json:"tickets"`
	Reason  string  `json:"reason"`
}

// ClosePositions отправляет идемпотентную команду закрытия позиций
func (b *Bridge) ClosePositions(ctx context.Context, ownerID int, tickets []int64, reason, idempotencyKey string) (*CloseAck, error) {
	token, err := b.ownerToken(ownerID)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v1/accounts/%d/close", b.baseURL, ownerID)

	body, err := json.Marshal(closeRequest{Tickets: tickets, Reason: reason})
	if err != nil {
		return nil, err
	}

	ack := &CloseAck{}
	headers := map[string]string{"Idempotency-Key": idempotencyKey}
	if err := b.postJSON(ctx, url, token, headers, body, ack); err != nil {
		return nil, fmt.Errorf("close positions: %w", err)
	}
	return ack, nil
}

// ============================================================
// SourceRegistry
// ============================================================

// disableRequest - команда отключения источника сигналов
type disableRequest struct {
	Reason string `json:"reason"`
}

// Disable деактивирует источник сигналов во внешнем реестре
func (b *Bridge) Disable(ctx context.Context, providerID int, reason string) error {
	url := fmt.Sprintf("%s/api/v1/providers/%d/disable", b.baseURL, providerID)

	body, err := json.Marshal(disableRequest{Reason: reason})
	if err != nil {
		return err
	}

	if err := b.postJSON(ctx, url, "", nil, body, nil); err != nil {
		return fmt.Errorf("disable provider %d: %w", providerID, err)
	}
	return nil
}

// ============================================================
// Внутренние помощники
// ============================================================

// ownerToken возвращает расшифрованный токен платформы для владельца
func (b *Bridge) ownerToken(ownerID int) (string, error) {
	account, err := b.accounts.GetByOwner(ownerID)
	if err != nil {
		return "", ErrAccountNotFound
	}
	token, err := crypto.Decrypt(account.EncryptedToken, b.cryptKey)
	if err != nil {
		return "", fmt.Errorf("decrypt platform token: %w", err)
	}
	return token, nil
}

// getJSON выполняет GET запрос с декодированием JSON ответа
func (b *Bridge) getJSON(ctx context.Context, url, token string, out interface{}) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return b.do(req, out)
}

// postJSON выполняет POST запрос с JSON телом
func (b *Bridge) postJSON(ctx context.Context, url, token string, headers map[string]string, body []byte, out interface{}) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return b.do(req, out)
}

// do выполняет запрос и декодирует ответ
func (b *Bridge) do(req *http.Request, out interface{}) error {
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
