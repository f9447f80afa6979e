package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Статусы локальных записей о позициях
const (
	PositionStatusOpen    = "open"
	PositionStatusClosing = "closing"
	PositionStatusClosed  = "closed"
)

// PositionRepository - работа с таблицей positions
//
// Таблица - локальное зеркало позиций торговой платформы. Движок лимитов
// только помечает записи при закрытии; создание и синхронизация - забота
// конвейера исполнения сигналов, который здесь не специфицирован.
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository создает новый экземпляр репозитория
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// MarkClosing помечает позиции владельца как закрываемые
//
// Не ошибка, если часть позиций уже закрыта или отсутствует локально:
// статусы платформы распространяются с задержкой.
func (r *PositionRepository) MarkClosing(ownerID int, positionIDs []int64) error {
	if len(positionIDs) == 0 {
		return nil
	}

	query := `
		UPDATE positions
		SET status = $1, updated_at = $2
		WHERE owner_id = $3 AND id = ANY($4) AND status = $5`

	_, err := r.db.Exec(query, PositionStatusClosing, time.Now(), ownerID, pq.Array(positionIDs), PositionStatusOpen)
	return err
}

// MarkClosed помечает позиции как закрытые
func (r *PositionRepository) MarkClosed(ownerID int, positionIDs []int64) error {
	if len(positionIDs) == 0 {
		return nil
	}

	query := `
		UPDATE positions
		SET status = $1, updated_at = $2
		WHERE owner_id = $3 AND id = ANY($4)`

	_, err := r.db.Exec(query, PositionStatusClosed, time.Now(), ownerID, pq.Array(positionIDs))
	return err
}
