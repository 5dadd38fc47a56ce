package operatorservice

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/pkg/token"
)

// OperatorRepository define o contrato que o Serviço de Operadores espera da Persistência.
type OperatorRepository interface {
	Save(ctx context.Context, operator domain.Operator) (domain.Operator, error)
	FindByEmail(ctx context.Context, email string) (domain.Operator, error)
}

// TokenService é o contrato da camada de token (internal/pkg/token).
type TokenService interface {
	GenerateToken(operatorID string, operatorRole string) (string, error)
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// Service implementa o registro e a autenticação de operadores.
type Service struct {
	repo     OperatorRepository
	tokenSvc TokenService
	logger   logger.Logger
}

// NewService cria uma nova instância do Serviço de Operadores.
func NewService(repo OperatorRepository, tokenSvc TokenService, log logger.Logger) *Service {
	return &Service{
		repo:     repo,
		tokenSvc: tokenSvc,
		logger:   log,
	}
}

// Register registra um novo operador (role padrão: pharmacist).
// Faz o hashing da senha antes de persistir.
func (s *Service) Register(ctx context.Context, registration domain.OperatorRegistration) (domain.Operator, error) {
	if registration.Email == "" || registration.Password == "" {
		return domain.Operator{}, apperror.NewValidationError("Email e senha são obrigatórios.")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Operator{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	newOperator := domain.Operator{
		Email:        registration.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RolePharmacist,
	}

	operator, err := s.repo.Save(ctx, newOperator)
	if err != nil {
		// O repositório já traduz violação de unicidade para ConflictError.
		return domain.Operator{}, err
	}

	s.logger.Info("Operador registrado.", map[string]interface{}{"operator_id": operator.ID, "email": operator.Email})
	return operator, nil
}

// Login autentica um operador, verifica a senha e gera um JWT.
func (s *Service) Login(ctx context.Context, email string, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	operator, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// NotFound vira Unauthorized para não dar dicas a invasores.
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)); err != nil {
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	tokenString, err := s.tokenSvc.GenerateToken(operator.ID, string(operator.Role))
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	return tokenString, nil
}
