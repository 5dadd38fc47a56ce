package provisioningservice

import (
	"context"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/extinv"
	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/pkg/saga"
)

// LotService define o contrato que o Workflow espera do Serviço de Lotes.
type LotService interface {
	CreateLot(ctx context.Context, req domain.CreateLotRequest) (domain.Lot, error)
	DeleteLot(ctx context.Context, id string) error
}

// SyncState indica o desfecho do passo de sincronização com o inventário externo.
type SyncState string

const (
	SyncStateSynced  SyncState = "SYNCED"
	SyncStateSkipped SyncState = "SYNC_SKIPPED" // Unidade sem vínculo de inventário: lote criado sem sincronizar
)

// ProvisionResult é o resultado do workflow de provisionamento de lote.
type ProvisionResult struct {
	Lot       domain.Lot `json:"lot"`
	SyncState SyncState  `json:"sync_state"`
}

// Service é o Workflow de Provisionamento de Lote: cria o lote no ledger e
// reflete a quantidade no sistema de inventário externo como uma transação
// lógica única, com compensação. Do ponto de vista do chamador a operação é
// atômica: ou o lote e (quando aplicável) o contador externo refletem o novo
// estoque, ou nenhum dos dois.
type Service struct {
	lots       LotService
	inventory  extinv.Client
	runner     *saga.Runner
	locationID string
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Workflow de Provisionamento.
func NewService(lots LotService, inventory extinv.Client, runner *saga.Runner, locationID string, log logger.Logger) *Service {
	return &Service{
		lots:       lots,
		inventory:  inventory,
		runner:     runner,
		locationID: locationID,
		logger:     log,
	}
}

// ProvisionBatch executa o workflow:
//
//	PENDING → LOT_CREATED → SYNCED | SYNC_SKIPPED → COMPLETE
//
// Na falha do passo de sincronização, as compensações rodam em ordem reversa
// (desfazer o ajuste externo se aplicado, depois remover o lote) e o chamador
// recebe um SyncFailureError — nunca um estado meio-aplicado como sucesso.
// Falha na própria criação do lote é terminal, sem nada a compensar.
func (s *Service) ProvisionBatch(ctx context.Context, req domain.CreateLotRequest) (ProvisionResult, error) {
	var (
		createdLot domain.Lot
		syncState  = SyncStateSkipped
		syncedItem string
	)

	steps := []saga.Step{
		{
			Name: "create-lot",
			Action: func(ctx context.Context) error {
				lot, err := s.lots.CreateLot(ctx, req)
				if err != nil {
					return err
				}
				createdLot = lot
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.lots.DeleteLot(ctx, createdLot.ID)
			},
		},
		{
			Name: "sync-external-inventory",
			Action: func(ctx context.Context) error {
				itemID, found, err := s.inventory.ResolveItem(ctx, req.UnitID)
				if err != nil {
					return err
				}
				if !found {
					// Não-fatal: um lote pode existir antes da fiação do
					// inventário estar completa.
					s.logger.Warn("Unidade sem vínculo de inventário externo. Lote criado sem sincronizar.", map[string]interface{}{
						"unit_id": req.UnitID,
						"lot_id":  createdLot.ID,
					})
					syncState = SyncStateSkipped
					return nil
				}

				if err := s.inventory.Adjust(ctx, itemID, s.locationID, req.Quantity); err != nil {
					return err
				}
				syncState = SyncStateSynced
				syncedItem = itemID
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if syncState != SyncStateSynced {
					return nil
				}
				// Desfaz o ajuste externo com o delta inverso.
				return s.inventory.Adjust(ctx, syncedItem, s.locationID, -req.Quantity)
			},
		},
	}

	state, err := s.runner.Run(ctx, "provision-batch", steps)
	if err != nil {
		if createdLot.ID == "" {
			// O primeiro passo falhou: erro de validação ou de persistência,
			// propagado como veio.
			return ProvisionResult{}, err
		}
		// O passo de sincronização falhou; a compensação já removeu o lote.
		s.logger.Error("Workflow de provisionamento revertido após falha de sincronização.", err)
		return ProvisionResult{}, apperror.NewSyncFailureError(
			"o lote foi revertido; repita a operação quando o serviço de inventário estiver disponível.", err)
	}

	s.logger.Info("Workflow de provisionamento concluído.", map[string]interface{}{
		"lot_id":     createdLot.ID,
		"unit_id":    createdLot.UnitID,
		"quantity":   createdLot.Quantity,
		"sync_state": string(syncState),
		"state":      string(state),
	})

	return ProvisionResult{Lot: createdLot, SyncState: syncState}, nil
}
