package middleware

import (
	"context"
	"net/http"
	"strconv"

	"riskguard/pkg/crypto"
)

// Ключи контекста запроса
type contextKey string

const (
	ownerIDKey   contextKey = "owner_id"
	adminNameKey contextKey = "admin_name"
)

// Заголовки аутентификации
const (
	HeaderOwnerID    = "X-Owner-ID"
	HeaderAdminToken = "X-Admin-Token"
	HeaderAdminName  = "X-Admin-Name"
)

// OwnerID извлекает ID владельца из контекста запроса
func OwnerID(r *http.Request) (int, bool) {
	id, ok := r.Context().Value(ownerIDKey).(int)
	return id, ok
}

// AdminName извлекает имя администратора из контекста запроса
func AdminName(r *http.Request) string {
	name, _ := r.Context().Value(adminNameKey).(string)
	return name
}

// OwnerAuth - middleware аутентификации владельца
//
// Владелец идентифицируется заголовком X-Owner-ID. Реальную проверку
// подлинности делает фронтовой gateway; движку лимитов достаточно
// изоляции данных по owner_id. Запрос без заголовка или с нечисловым
// значением отклоняется с 401.
func OwnerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderOwnerID)
		if raw == "" {
			http.Error(w, "missing "+HeaderOwnerID+" header", http.StatusUnauthorized)
			return
		}

		ownerID, err := strconv.Atoi(raw)
		if err != nil || ownerID <= 0 {
			http.Error(w, "invalid "+HeaderOwnerID+" header", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ownerIDKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminAuth создает middleware проверки административного токена
//
// Токен передается в X-Admin-Token и сверяется с bcrypt хешем из
// конфигурации (ADMIN_TOKEN_HASH). Пустой хеш полностью закрывает
// админские endpoints: сброс лимитов без настроенного токена невозможен.
// Имя администратора из X-Admin-Name попадает в журнал аудита.
func AdminAuth(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				http.Error(w, "admin access disabled", http.StatusForbidden)
				return
			}

			token := r.Header.Get(HeaderAdminToken)
			if token == "" {
				http.Error(w, "missing "+HeaderAdminToken+" header", http.StatusUnauthorized)
				return
			}

			if !crypto.TokenMatches(token, tokenHash) {
				http.Error(w, "invalid admin token", http.StatusUnauthorized)
				return
			}

			name := r.Header.Get(HeaderAdminName)
			if name == "" {
				name = "admin"
			}

			ctx := context.WithValue(r.Context(), adminNameKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
