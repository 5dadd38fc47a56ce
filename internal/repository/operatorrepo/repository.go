package operatorrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
)

// OperatorRepository é a camada de persistência das contas de operador.
type OperatorRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewOperatorRepository cria uma nova instância do OperatorRepository, injetando o DB.
func NewOperatorRepository(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *OperatorRepository {
	return &OperatorRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// Save insere um novo operador no banco de dados.
func (r *OperatorRepository) Save(ctx context.Context, operator domain.Operator) (domain.Operator, error) {
	r.logger.Debug("Iniciando Save de operador no repositório.", map[string]interface{}{"email": operator.Email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	operator.ID = uuid.NewString()
	operator.CreatedAt = time.Now()
	operator.UpdatedAt = operator.CreatedAt

	query := `INSERT INTO operators (id, email, password_hash, role, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.DB.ExecContext(ctxTimeout, query,
		operator.ID,
		operator.Email,
		operator.PasswordHash,
		operator.Role,
		operator.CreatedAt,
		operator.UpdatedAt,
	)

	if err != nil {
		// 23505 = unique_violation (email duplicado)
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.Operator{}, apperror.NewConflictError(
				fmt.Sprintf("O email '%s' já está em uso.", operator.Email),
			)
		}
		r.logger.Error("Falha ao inserir operador no DB.", err)
		return domain.Operator{}, apperror.NewDBError("Falha ao inserir operador", err)
	}

	r.logger.Info("Operador salvo com sucesso.", map[string]interface{}{"operator_id": operator.ID, "email": operator.Email})
	return operator, nil
}

// FindByEmail busca um operador pelo endereço de e-mail.
func (r *OperatorRepository) FindByEmail(ctx context.Context, email string) (domain.Operator, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT id, email, password_hash, role, created_at, updated_at
              FROM operators WHERE email = $1`

	var op domain.Operator
	err := r.DB.QueryRowContext(ctxTimeout, query, email).Scan(
		&op.ID, &op.Email, &op.PasswordHash, &op.Role, &op.CreatedAt, &op.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return domain.Operator{}, apperror.NewNotFoundError(fmt.Sprintf("Operador com email %s não encontrado.", email))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar operador no DB.", err)
		return domain.Operator{}, apperror.NewDBError("Falha ao buscar operador", err)
	}

	return op, nil
}
