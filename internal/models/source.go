package models

import "time"

// SignalSource представляет локальную запись о поставщике сигналов
//
// Сам поставщик живёт во внешнем реестре; здесь хранится активность
// и причина отключения, чтобы дашборд видел кто и почему был отключен
// движком лимитов.
type SignalSource struct {
	ID             int        `json:"id" db:"id"`
	OwnerID        int        `json:"owner_id" db:"owner_id"`
	Name           string     `json:"name" db:"name"`
	IsActive       bool       `json:"is_active" db:"is_active"`
	DisabledReason *string    `json:"disabled_reason,omitempty" db:"disabled_reason"`
	DisabledAt     *time.Time `json:"disabled_at,omitempty" db:"disabled_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
