package orderlogrepo

import (
	"context"
	"database/sql"
	"time"

	"pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
)

// OrderLogRepository registra os pedidos já consumidos pelo Subscriber.
// A entrega do evento order.placed é at-least-once; este registro é o que
// torna a redelivery segura (sem dupla dedução de estoque).
type OrderLogRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewOrderLogRepository cria uma nova instância do repositório de dedup de pedidos.
func NewOrderLogRepository(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *OrderLogRepository {
	return &OrderLogRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// MarkProcessed tenta registrar o pedido como processado.
// Retorna true quando este chamador ganhou o registro (primeira entrega) e
// false quando o pedido já havia sido processado (redelivery).
func (r *OrderLogRepository) MarkProcessed(ctx context.Context, orderID string) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// ON CONFLICT DO NOTHING: a primary key em order_id resolve a corrida
	// entre duas entregas simultâneas do mesmo evento no próprio banco.
	result, err := r.DB.ExecContext(ctxTimeout,
		`INSERT INTO processed_orders (order_id, processed_at)
         VALUES ($1, $2)
         ON CONFLICT (order_id) DO NOTHING`,
		orderID, time.Now(),
	)
	if err != nil {
		r.logger.Error("Falha ao registrar pedido processado.", err)
		return false, errors.NewDBError("Falha ao registrar pedido processado", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDBError("Falha ao verificar registro de pedido", err)
	}

	return rows == 1, nil
}
