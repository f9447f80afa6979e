package models

import "time"

// PlatformAccount представляет учётные данные владельца на торговой платформе
//
// Token хранится зашифрованным (AES-256-GCM, см. pkg/crypto) и расшифровывается
// только в момент обращения моста к платформе. ChatID используется каналом
// уведомлений (Telegram).
type PlatformAccount struct {
	ID             int       `json:"id" db:"id"`
	OwnerID        int       `json:"owner_id" db:"owner_id"`
	Login          string    `json:"login" db:"login"`
	EncryptedToken string    `json:"-" db:"encrypted_token"`
	ChatID         int64     `json:"chat_id" db:"chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
