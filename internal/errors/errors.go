package errors

import (
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do PharmaStock.
// Ela permite que o código externo (Handler, Subscriber) acesse a Categoria e a
// Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada
// (quantidade negativa, validade ausente, pedido de alocação não-positivo).
// Nunca é retentado automaticamente.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// UnitNotFoundError indica que a unidade estocável nunca teve lotes no ledger.
// Em modo normal o Alocador trata isso como shortfall total, não como falha;
// o erro só chega ao chamador em modo estrito.
type UnitNotFoundError struct {
	UnitID string
}

func (e *UnitNotFoundError) Error() string {
	return fmt.Sprintf("Unidade estocável desconhecida no ledger: %s", e.UnitID)
}
func (e *UnitNotFoundError) Category() string { return "UNIT_NOT_FOUND" }
func (e *UnitNotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *UnitNotFoundError) Unwrap() error    { return nil }

// NewUnitNotFoundError cria um erro de unidade desconhecida.
func NewUnitNotFoundError(unitID string) AppError {
	return &UnitNotFoundError{UnitID: unitID}
}

// ConflictError representa um conflito na regra de negócio (e.g., OCC, recurso duplicado).
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return nil }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string) AppError {
	return &ConflictError{Msg: msg}
}

// InsufficientQuantityError indica que um decremento excederia a quantidade
// atual de um lote, ou — em modo estrito — que o saldo total da unidade não
// cobre o pedido. No caminho de decremento, o erro sinaliza uma corrida entre
// alocações concorrentes e deve ser retentado uma vez (re-buscar o lote e
// recalcular) antes de ser propagado.
type InsufficientQuantityError struct {
	Msg string
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("Quantidade insuficiente: %s", e.Msg)
}
func (e *InsufficientQuantityError) Category() string { return "INSUFFICIENT_QUANTITY" }
func (e *InsufficientQuantityError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *InsufficientQuantityError) Unwrap() error    { return nil }

// NewInsufficientQuantityError cria um erro de decremento maior que o saldo do lote.
func NewInsufficientQuantityError(lotID string, requested int) AppError {
	return &InsufficientQuantityError{
		Msg: fmt.Sprintf("o lote %s não comporta o decremento de %d unidades.", lotID, requested),
	}
}

// NewInsufficientStockError cria um erro de saldo total insuficiente para a
// unidade (usado pelo Alocador em modo estrito, antes de qualquer decremento).
func NewInsufficientStockError(unitID string, available, requested int) AppError {
	return &InsufficientQuantityError{
		Msg: fmt.Sprintf("a unidade %s tem %d unidades disponíveis para um pedido de %d (modo estrito).", unitID, available, requested),
	}
}

// SyncFailureError indica que o passo de sincronização com o inventário externo
// falhou durante o workflow de provisionamento. A compensação já foi executada
// quando este erro chega ao chamador: o lote recém-criado não existe mais.
type SyncFailureError struct {
	Msg string
	Err error
}

func (e *SyncFailureError) Error() string {
	return fmt.Sprintf("Falha de sincronização com o inventário externo: %s", e.Msg)
}
func (e *SyncFailureError) Category() string { return "SYNC_FAILURE" }
func (e *SyncFailureError) HTTPStatus() int  { return http.StatusBadGateway } // 502
func (e *SyncFailureError) Unwrap() error    { return e.Err }

// NewSyncFailureError cria um erro de sincronização de inventário.
func NewSyncFailureError(msg string, err error) AppError {
	return &SyncFailureError{Msg: msg, Err: err}
}

// UnauthorizedError representa falha de autenticação ou autorização.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um novo erro de autenticação/autorização.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para criar um InternalError específico de falhas no DB.
func NewDBError(msg string, err error) AppError {
	return NewInternalError(fmt.Sprintf("%s (DB): %s", msg, err.Error()), err)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
func MapToHTTPStatus(err error) (int, string, string) {
	if appErr, ok := err.(AppError); ok {
		// O erro é tipado (ValidationError, NotFoundError, etc.)
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado (e.g., erro simples de pacote Go que não implementa AppError)
	// Tratar como erro interno genérico.
	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
