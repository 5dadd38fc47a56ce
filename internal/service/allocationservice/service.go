package allocationservice

import (
	"context"
	"errors"
	"time"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
)

// LotRepository define o contrato que o Alocador espera da camada de Persistência.
type LotRepository interface {
	FindByUnit(ctx context.Context, filter domain.LotFilter) ([]domain.Lot, error)
	FindByID(ctx context.Context, id string) (domain.Lot, error)
	Decrement(ctx context.Context, lotID string, amount int) (domain.Lot, error)
	UnitExists(ctx context.Context, unitID string) (bool, error)
}

// Policy define a política padrão de alocação, vinda da configuração.
// As flags podem ser sobrescritas por requisição via AllocationRequest.
type Policy struct {
	Strict         bool // Falhar a alocação inteira quando o saldo total for insuficiente
	ExcludeExpired bool // Excluir lotes já vencidos da seleção FEFO
}

// Service é o Alocador FEFO: satisfaz uma quantidade pedida consumindo lotes
// em ordem crescente de validade (desempate por ordem de criação).
type Service struct {
	repo   LotRepository
	policy Policy
	logger logger.Logger
	now    func() time.Time
}

// NewService cria e retorna uma nova instância do Alocador.
func NewService(repo LotRepository, policy Policy, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		policy: policy,
		logger: log,
		now:    time.Now,
	}
}

// Allocate consome lotes da unidade em ordem FEFO até satisfazer a quantidade
// pedida ou esgotar o estoque. Esgotar sem atender tudo NÃO é erro: o
// resultado carrega o shortfall e o chamador decide (logar, backorder,
// alertar). Em modo estrito, o saldo total é pré-verificado e a alocação
// falha inteira, antes de qualquer decremento, se for insuficiente.
//
// Cancelamento é best-effort: o contexto é verificado antes de cada novo
// decremento; decrementos já aplicados não são desfeitos e o chamador deve
// tratar uma alocação cancelada como "possivelmente aplicada em parte".
func (s *Service) Allocate(ctx context.Context, req domain.AllocationRequest) (domain.AllocationResult, error) {
	if req.UnitID == "" {
		return domain.AllocationResult{}, apperror.NewValidationError("A unidade estocável (unit_id) é obrigatória.")
	}
	if req.Quantity <= 0 {
		return domain.AllocationResult{}, apperror.NewValidationError("A quantidade a alocar deve ser positiva.")
	}

	strict := s.policy.Strict
	if req.Strict != nil {
		strict = *req.Strict
	}
	excludeExpired := s.policy.ExcludeExpired
	if req.ExcludeExpired != nil {
		excludeExpired = *req.ExcludeExpired
	}

	s.logger.Debug("Iniciando alocação FEFO.", map[string]interface{}{
		"unit_id":         req.UnitID,
		"requested":       req.Quantity,
		"strict":          strict,
		"exclude_expired": excludeExpired,
	})

	// 1. Buscar lotes com saldo, já em ordem FEFO (a ordenação vem da query).
	lots, err := s.repo.FindByUnit(ctx, domain.LotFilter{
		UnitID:        req.UnitID,
		OnlyWithStock: true,
		FEFOOrder:     true,
	})
	if err != nil {
		return domain.AllocationResult{}, err
	}

	// 2. Política de validade: por padrão lotes vencidos ainda são elegíveis
	// (venda do saldo remanescente a critério da farmácia); a exclusão é opt-in.
	if excludeExpired {
		now := s.now()
		eligible := lots[:0]
		for _, lot := range lots {
			if !lot.IsExpired(now) {
				eligible = append(eligible, lot)
			}
		}
		lots = eligible
	}

	// 3. Modo estrito: pré-verificação do saldo total antes de tocar em
	// qualquer lote. A verificação não segura locks: encolhimento concorrente
	// depois dela ainda resulta em alocação parcial, nunca em saldo negativo.
	if strict {
		available := 0
		for _, lot := range lots {
			available += lot.Quantity
		}
		if available < req.Quantity {
			if len(lots) == 0 {
				exists, existsErr := s.repo.UnitExists(ctx, req.UnitID)
				if existsErr != nil {
					return domain.AllocationResult{}, existsErr
				}
				if !exists {
					return domain.AllocationResult{}, apperror.NewUnitNotFoundError(req.UnitID)
				}
			}
			return domain.AllocationResult{}, apperror.NewInsufficientStockError(req.UnitID, available, req.Quantity)
		}
	}

	result := domain.AllocationResult{
		UnitID:    req.UnitID,
		Requested: req.Quantity,
		Lines:     make([]domain.LotAllocation, 0, len(lots)),
	}
	remaining := req.Quantity

	// 4. Caminhada FEFO: take = min(saldo do lote, restante necessário).
	for _, lot := range lots {
		if remaining == 0 {
			break
		}

		// Cancelamento best-effort entre decrementos.
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.logger.Warn("Alocação interrompida por cancelamento do contexto.", map[string]interface{}{
				"unit_id":   req.UnitID,
				"allocated": result.Allocated,
				"remaining": remaining,
			})
			result.Shortfall = remaining
			return result, ctxErr
		}

		take := lot.Quantity
		if take > remaining {
			take = remaining
		}

		decremented, taken, err := s.decrementWithRetry(ctx, lot, take, remaining)
		if err != nil {
			var insufficient *apperror.InsufficientQuantityError
			if errors.As(err, &insufficient) {
				// O lote encolheu sob concorrência mesmo após o retry:
				// segue para o próximo lote da ordem FEFO.
				continue
			}
			// Erro de armazenamento: propaga com o resultado parcial —
			// decrementos já aplicados não são desfeitos automaticamente.
			result.Shortfall = remaining
			return result, err
		}

		result.Lines = append(result.Lines, domain.LotAllocation{
			LotID:      decremented.ID,
			LotNumber:  decremented.LotNumber,
			ExpiryDate: decremented.ExpiryDate,
			Taken:      taken,
			Remaining:  decremented.Quantity,
		})
		result.Allocated += taken
		remaining -= taken

		s.logger.Info("Quantidade alocada de lote.", map[string]interface{}{
			"unit_id":    req.UnitID,
			"lot_id":     decremented.ID,
			"lot_number": decremented.LotNumber,
			"expiry":     decremented.ExpiryDate.Format(time.RFC3339),
			"taken":      taken,
		})
	}

	result.Shortfall = remaining

	// 5. Shortfall é sinal, não erro: a alocação parcial espelha a realidade
	// de farmácia — bloquear o pedido inteiro costuma ser pior.
	if result.Shortfall > 0 {
		s.logger.Warn("Alocação parcial: estoque insuficiente.", map[string]interface{}{
			"unit_id":   req.UnitID,
			"requested": req.Quantity,
			"allocated": result.Allocated,
			"shortfall": result.Shortfall,
		})
	}

	return result, nil
}

// decrementWithRetry aplica o decremento e, se a guarda de quantidade rejeitar
// (corrida com outra alocação), re-busca o lote UMA vez, recalcula o take e
// tenta de novo antes de desistir deste lote. Retorna o lote após o decremento
// e a quantidade efetivamente retirada.
func (s *Service) decrementWithRetry(ctx context.Context, lot domain.Lot, take, remaining int) (domain.Lot, int, error) {
	decremented, err := s.repo.Decrement(ctx, lot.ID, take)
	if err == nil {
		return decremented, take, nil
	}

	var insufficient *apperror.InsufficientQuantityError
	if !errors.As(err, &insufficient) {
		return domain.Lot{}, 0, err
	}

	// Re-busca e recalcula: outra alocação consumiu parte do lote no intervalo.
	refreshed, findErr := s.repo.FindByID(ctx, lot.ID)
	if findErr != nil {
		return domain.Lot{}, 0, err
	}
	if refreshed.Quantity <= 0 {
		return domain.Lot{}, 0, err
	}

	retryTake := refreshed.Quantity
	if retryTake > remaining {
		retryTake = remaining
	}

	s.logger.Debug("Retentando decremento após conflito de concorrência.", map[string]interface{}{
		"lot_id":     lot.ID,
		"first_take": take,
		"retry_take": retryTake,
	})

	decremented, err = s.repo.Decrement(ctx, lot.ID, retryTake)
	if err != nil {
		return domain.Lot{}, 0, err
	}
	return decremented, retryTake, nil
}
