package lotrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pharmastock/internal/domain"
	"pharmastock/internal/errors"
	"pharmastock/internal/pkg/cache"
	"pharmastock/internal/pkg/logger"
)

// Chave de cache para a listagem de lotes de uma unidade.
const unitLotsCacheKey = "lots:unit:%s"

// TTL curto: a listagem administrativa tolera alguns segundos de atraso;
// o caminho de alocação nunca lê do cache.
const unitLotsCacheTTL = 30 * time.Second

// LotRepository é a camada de persistência do ledger de lotes.
// Toda mutação de quantidade passa por UPDATEs atômicos com guarda
// (WHERE quantity >= amount) para impedir sobre-alocação concorrente.
type LotRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewLotRepository cria e retorna uma nova instância do Repositório de Lotes.
func NewLotRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, log logger.Logger) *LotRepository {
	return &LotRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

const lotColumns = `id, unit_id, lot_number, expiry_date, manufacturing_date, quantity, barcode, created_at, updated_at`

// scanLot lê uma linha de lote a partir de um sql.Row ou sql.Rows.
func scanLot(scan func(dest ...interface{}) error) (domain.Lot, error) {
	var lot domain.Lot
	var manufacturing sql.NullTime
	var barcode sql.NullString

	err := scan(
		&lot.ID, &lot.UnitID, &lot.LotNumber, &lot.ExpiryDate,
		&manufacturing, &lot.Quantity, &barcode, &lot.CreatedAt, &lot.UpdatedAt,
	)
	if err != nil {
		return domain.Lot{}, err
	}

	if manufacturing.Valid {
		t := manufacturing.Time
		lot.ManufacturingDate = &t
	}
	if barcode.Valid {
		lot.Barcode = barcode.String
	}
	return lot, nil
}

// Save persiste um novo Lote no ledger.
func (r *LotRepository) Save(ctx context.Context, lot domain.Lot) (domain.Lot, error) {
	r.logger.Debug("Persistindo novo lote no repositório.", map[string]interface{}{
		"unit_id":    lot.UnitID,
		"lot_number": lot.LotNumber,
		"quantity":   lot.Quantity,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	now := time.Now()
	lot.CreatedAt = now
	lot.UpdatedAt = now

	query := `
        INSERT INTO lots (id, unit_id, lot_number, expiry_date, manufacturing_date, quantity, barcode, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var manufacturing interface{}
	if lot.ManufacturingDate != nil {
		manufacturing = *lot.ManufacturingDate
	}
	var barcode interface{}
	if lot.Barcode != "" {
		barcode = lot.Barcode
	}

	_, err := r.DB.ExecContext(ctxTimeout, query,
		lot.ID, lot.UnitID, lot.LotNumber, lot.ExpiryDate,
		manufacturing, lot.Quantity, barcode, lot.CreatedAt, lot.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir lote no DB.", err)
		return domain.Lot{}, errors.NewDBError("Falha ao inserir lote", err)
	}

	r.invalidateUnitCache(ctxTimeout, lot.UnitID)

	r.logger.Info("Lote criado com sucesso.", map[string]interface{}{
		"lot_id":     lot.ID,
		"unit_id":    lot.UnitID,
		"lot_number": lot.LotNumber,
	})
	return lot, nil
}

// FindByID busca um lote pelo seu identificador.
func (r *LotRepository) FindByID(ctx context.Context, id string) (domain.Lot, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1`

	row := r.DB.QueryRowContext(ctxTimeout, query, id)
	lot, err := scanLot(row.Scan)

	if err == sql.ErrNoRows {
		return domain.Lot{}, errors.NewNotFoundError(fmt.Sprintf("Lote %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar lote no DB.", err)
		return domain.Lot{}, errors.NewDBError("Falha ao buscar lote", err)
	}

	return lot, nil
}

// FindByUnit lista os lotes de uma unidade estocável.
// A ordenação FEFO (expiry_date ASC, desempate por created_at ASC) é aplicada
// pela própria query — é um requisito de correção da alocação, nunca um
// re-sort do lado do cliente.
func (r *LotRepository) FindByUnit(ctx context.Context, filter domain.LotFilter) ([]domain.Lot, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	// Cache-aside apenas para a listagem administrativa completa.
	// Leituras de alocação (OnlyWithStock) vão sempre ao DB: corretude
	// do decremento vale mais que latência aqui.
	useCache := !filter.OnlyWithStock && !filter.FEFOOrder
	key := fmt.Sprintf(unitLotsCacheKey, filter.UnitID)

	if useCache {
		if cached, err := r.Cache.Get(ctxTimeout, key); err == nil {
			var lots []domain.Lot
			if json.Unmarshal([]byte(cached), &lots) == nil {
				return lots, nil
			}
			// Desserialização falhou: segue para o DB.
		} else if err != cache.ErrCacheMiss {
			// Erro real de cache (e.g., conexão): logar e continuar no DB.
			r.logger.Warn("Falha ao ler listagem de lotes do cache.", map[string]interface{}{"unit_id": filter.UnitID})
		}
	}

	query := `SELECT ` + lotColumns + ` FROM lots WHERE unit_id = $1`
	if filter.OnlyWithStock {
		query += ` AND quantity > 0`
	}
	if filter.FEFOOrder {
		query += ` ORDER BY expiry_date ASC, created_at ASC`
	} else {
		query += ` ORDER BY created_at ASC`
	}

	rows, err := r.DB.QueryContext(ctxTimeout, query, filter.UnitID)
	if err != nil {
		r.logger.Error("Falha ao listar lotes no DB.", err)
		return nil, errors.NewDBError("Falha ao listar lotes", err)
	}
	defer rows.Close()

	lots := make([]domain.Lot, 0)
	for rows.Next() {
		lot, err := scanLot(rows.Scan)
		if err != nil {
			r.logger.Error("Falha ao ler linha de lote.", err)
			return nil, errors.NewDBError("Falha ao ler lote", err)
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Falha ao iterar lotes", err)
	}

	if useCache {
		if payload, err := json.Marshal(lots); err == nil {
			_ = r.Cache.Set(ctxTimeout, key, string(payload), unitLotsCacheTTL)
		}
	}

	return lots, nil
}

// UnitExists informa se a unidade possui qualquer histórico no ledger
// (inclusive lotes esgotados). Usado pelo Alocador em modo estrito para
// distinguir "unidade desconhecida" de "unidade sem saldo".
func (r *LotRepository) UnitExists(ctx context.Context, unitID string) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var exists bool
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT EXISTS(SELECT 1 FROM lots WHERE unit_id = $1)`, unitID,
	).Scan(&exists)
	if err != nil {
		r.logger.Error("Falha ao verificar existência da unidade.", err)
		return false, errors.NewDBError("Falha ao verificar unidade", err)
	}

	return exists, nil
}

// Decrement reduz a quantidade de um lote de forma atômica.
// A guarda `quantity >= $2` na própria instrução UPDATE é o que impede duas
// alocações concorrentes de levarem o lote abaixo de zero: o banco serializa
// os decrementos pela linha, sem lock pessimista atravessando lotes.
func (r *LotRepository) Decrement(ctx context.Context, lotID string, amount int) (domain.Lot, error) {
	r.logger.Debug("Decrementando lote no repositório.", map[string]interface{}{
		"lot_id": lotID,
		"amount": amount,
	})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if amount <= 0 {
		return domain.Lot{}, errors.NewValidationError("O decremento deve ser positivo.")
	}

	query := `
        UPDATE lots
        SET quantity = quantity - $2, updated_at = $3
        WHERE id = $1 AND quantity >= $2
        RETURNING ` + lotColumns

	row := r.DB.QueryRowContext(ctxTimeout, query, lotID, amount, time.Now())
	lot, err := scanLot(row.Scan)

	if err == sql.ErrNoRows {
		// Zero linhas afetadas: ou o lote não existe, ou a guarda de
		// quantidade rejeitou o decremento (corrida entre alocações).
		current, findErr := r.FindByID(ctx, lotID)
		if findErr != nil {
			return domain.Lot{}, findErr
		}
		r.logger.Warn("Decremento rejeitado pela guarda de quantidade.", map[string]interface{}{
			"lot_id":    lotID,
			"amount":    amount,
			"available": current.Quantity,
		})
		return domain.Lot{}, errors.NewInsufficientQuantityError(lotID, amount)
	}
	if err != nil {
		r.logger.Error("Falha ao decrementar lote no DB.", err)
		return domain.Lot{}, errors.NewDBError("Falha ao decrementar lote", err)
	}

	r.invalidateUnitCache(ctxTimeout, lot.UnitID)

	r.logger.Info("Lote decrementado com sucesso.", map[string]interface{}{
		"lot_id":       lot.ID,
		"unit_id":      lot.UnitID,
		"amount":       amount,
		"new_quantity": lot.Quantity,
	})
	return lot, nil
}

// Update aplica uma correção administrativa parcial ao lote.
// Não participa da lógica de alocação.
func (r *LotRepository) Update(ctx context.Context, id string, req domain.UpdateLotRequest) (domain.Lot, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE lots
        SET lot_number         = COALESCE($2, lot_number),
            expiry_date        = COALESCE($3, expiry_date),
            quantity           = COALESCE($4, quantity),
            manufacturing_date = COALESCE($5, manufacturing_date),
            barcode            = COALESCE($6, barcode),
            updated_at         = $7
        WHERE id = $1
        RETURNING ` + lotColumns

	row := r.DB.QueryRowContext(ctxTimeout, query,
		id, req.LotNumber, req.ExpiryDate, req.Quantity, req.ManufacturingDate, req.Barcode, time.Now(),
	)
	lot, err := scanLot(row.Scan)

	if err == sql.ErrNoRows {
		return domain.Lot{}, errors.NewNotFoundError(fmt.Sprintf("Lote %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar lote no DB.", err)
		return domain.Lot{}, errors.NewDBError("Falha ao atualizar lote", err)
	}

	r.invalidateUnitCache(ctxTimeout, lot.UnitID)

	r.logger.Info("Lote atualizado com sucesso.", map[string]interface{}{"lot_id": lot.ID})
	return lot, nil
}

// Delete remove um lote definitivamente. Usado apenas pela compensação do
// workflow de provisionamento e pela remoção administrativa explícita.
func (r *LotRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var unitID string
	err := r.DB.QueryRowContext(ctxTimeout,
		`DELETE FROM lots WHERE id = $1 RETURNING unit_id`, id,
	).Scan(&unitID)

	if err == sql.ErrNoRows {
		return errors.NewNotFoundError(fmt.Sprintf("Lote %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao remover lote no DB.", err)
		return errors.NewDBError("Falha ao remover lote", err)
	}

	r.invalidateUnitCache(ctxTimeout, unitID)

	r.logger.Info("Lote removido definitivamente.", map[string]interface{}{"lot_id": id, "unit_id": unitID})
	return nil
}

// invalidateUnitCache descarta a listagem cacheada da unidade após qualquer mutação.
func (r *LotRepository) invalidateUnitCache(ctx context.Context, unitID string) {
	key := fmt.Sprintf(unitLotsCacheKey, unitID)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Falha ao invalidar cache de lotes da unidade.", map[string]interface{}{"unit_id": unitID})
	}
}
