package lotservice

import (
	"context"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
)

// LotRepository define o contrato que o Serviço de Lotes espera da camada de Persistência.
type LotRepository interface {
	Save(ctx context.Context, lot domain.Lot) (domain.Lot, error)
	FindByID(ctx context.Context, id string) (domain.Lot, error)
	FindByUnit(ctx context.Context, filter domain.LotFilter) ([]domain.Lot, error)
	Update(ctx context.Context, id string, req domain.UpdateLotRequest) (domain.Lot, error)
	Delete(ctx context.Context, id string) error
}

// Service implementa a lógica de negócio do Ledger de Lotes:
// validação de criação, listagem e correções administrativas.
type Service struct {
	repo   LotRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Lotes.
func NewService(repo LotRepository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// CreateLot valida e persiste um novo lote no ledger.
// Um lote com quantidade zero é válido (lote placeholder/vazio).
func (s *Service) CreateLot(ctx context.Context, req domain.CreateLotRequest) (domain.Lot, error) {
	if req.UnitID == "" {
		return domain.Lot{}, apperror.NewValidationError("A unidade estocável (unit_id) é obrigatória.")
	}
	if req.LotNumber == "" {
		return domain.Lot{}, apperror.NewValidationError("O número do lote (lot_number) é obrigatório.")
	}
	if req.ExpiryDate.IsZero() {
		return domain.Lot{}, apperror.NewValidationError("A data de validade (expiry_date) é obrigatória.")
	}
	if req.Quantity < 0 {
		return domain.Lot{}, apperror.NewValidationError("A quantidade do lote não pode ser negativa.")
	}

	lot := domain.Lot{
		UnitID:            req.UnitID,
		LotNumber:         req.LotNumber,
		ExpiryDate:        req.ExpiryDate,
		ManufacturingDate: req.ManufacturingDate,
		Quantity:          req.Quantity,
		Barcode:           req.Barcode,
	}

	created, err := s.repo.Save(ctx, lot)
	if err != nil {
		s.logger.Error("Falha ao criar lote no repositório.", err)
		return domain.Lot{}, err
	}

	return created, nil
}

// GetLotByID busca um lote pelo id.
func (s *Service) GetLotByID(ctx context.Context, id string) (domain.Lot, error) {
	if id == "" {
		return domain.Lot{}, apperror.NewValidationError("O id do lote é obrigatório.")
	}
	return s.repo.FindByID(ctx, id)
}

// ListLots lista os lotes de uma unidade estocável, opcionalmente filtrando
// para lotes com saldo e/ou em ordem FEFO.
func (s *Service) ListLots(ctx context.Context, filter domain.LotFilter) ([]domain.Lot, error) {
	if filter.UnitID == "" {
		return nil, apperror.NewValidationError("A unidade estocável (unit_id) é obrigatória para a listagem.")
	}
	return s.repo.FindByUnit(ctx, filter)
}

// UpdateLot aplica uma correção administrativa parcial (e.g., consertar uma
// data de validade). Não participa da lógica de alocação.
func (s *Service) UpdateLot(ctx context.Context, id string, req domain.UpdateLotRequest) (domain.Lot, error) {
	if id == "" {
		return domain.Lot{}, apperror.NewValidationError("O id do lote é obrigatório.")
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return domain.Lot{}, apperror.NewValidationError("A quantidade corrigida não pode ser negativa.")
	}
	if req.ExpiryDate != nil && req.ExpiryDate.IsZero() {
		return domain.Lot{}, apperror.NewValidationError("A data de validade corrigida não pode ser vazia.")
	}

	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		s.logger.Error("Falha ao atualizar lote no repositório.", err)
		return domain.Lot{}, err
	}

	s.logger.Info("Correção administrativa aplicada ao lote.", map[string]interface{}{"lot_id": id})
	return updated, nil
}

// DeleteLot remove um lote definitivamente (remoção administrativa).
func (s *Service) DeleteLot(ctx context.Context, id string) error {
	if id == "" {
		return apperror.NewValidationError("O id do lote é obrigatório.")
	}
	return s.repo.Delete(ctx, id)
}
