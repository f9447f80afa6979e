package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// TelegramConfig - конфигурация Telegram канала уведомлений
type TelegramConfig struct {
	// BotToken - токен бота из переменной окружения TELEGRAM_BOT_TOKEN.
	// Пустой токен отключает доставку (уведомления только логируются).
	BotToken string

	// APIURL переопределяется в тестах; по умолчанию api.telegram.org
	APIURL string

	HTTP HTTPClientConfig
}

// TelegramNotifier доставляет уведомления владельцам через Telegram бота
//
// Chat ID владельца берётся из его platform_accounts записи. Доставка
// best-effort: любая ошибка возвращается вызывающему для логирования
// и никогда не влияет на enforcement.
type TelegramNotifier struct {
	token    string
	apiURL   string
	client   *http.Client
	accounts AccountStore
}

// NewTelegramNotifier создаёт Telegram нотификатор
func NewTelegramNotifier(config TelegramConfig, accounts AccountStore) *TelegramNotifier {
	apiURL := config.APIURL
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		token:    config.BotToken,
		apiURL:   apiURL,
		client:   NewHTTPClient(config.HTTP),
		accounts: accounts,
	}
}

// sendMessageRequest - тело запроса sendMessage
type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Send отправляет сообщение владельцу
func (t *TelegramNotifier) Send(ctx context.Context, ownerID int, message string) error {
	if t.token == "" {
		return nil
	}

	account, err := t.accounts.GetByOwner(ownerID)
	if err != nil {
		return fmt.Errorf("resolve chat for owner %d: %w", ownerID, err)
	}
	if account.ChatID == 0 {
		return nil
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: account.ChatID, Text: message})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
