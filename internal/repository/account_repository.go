package repository

import (
	"database/sql"
	"errors"
	"time"

	"riskguard/internal/models"
)

// Ошибки репозитория аккаунтов
var (
	ErrAccountNotFound = errors.New("platform account not found")
)

// AccountRepository - работа с таблицей platform_accounts
//
// Токены платформы хранятся зашифрованными (AES-256-GCM, см. pkg/crypto);
// репозиторий оперирует уже зашифрованными строками.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByOwner возвращает аккаунт владельца
func (r *AccountRepository) GetByOwner(ownerID int) (*models.PlatformAccount, error) {
	query := `
		SELECT id, owner_id, login, encrypted_token, chat_id, created_at, updated_at
		FROM platform_accounts WHERE owner_id = $1`

	account := &models.PlatformAccount{}
	err := r.db.QueryRow(query, ownerID).Scan(
		&account.ID,
		&account.OwnerID,
		&account.Login,
		&account.EncryptedToken,
		&account.ChatID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}

// Upsert создает или обновляет аккаунт владельца
func (r *AccountRepository) Upsert(account *models.PlatformAccount) error {
	query := `
		INSERT INTO platform_accounts (owner_id, login, encrypted_token, chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (owner_id)
		DO UPDATE SET login = $2, encrypted_token = $3, chat_id = $4, updated_at = $5
		RETURNING id`

	now := time.Now()
	account.UpdatedAt = now
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}

	return r.db.QueryRow(
		query,
		account.OwnerID,
		account.Login,
		account.EncryptedToken,
		account.ChatID,
		now,
	).Scan(&account.ID)
}
