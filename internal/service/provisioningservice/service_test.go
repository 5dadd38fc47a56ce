package provisioningservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/pkg/saga"
	"pharmastock/internal/service/provisioningservice"
)

// MockLotService é uma implementação mock da interface LotService
type MockLotService struct {
	mock.Mock
}

func (m *MockLotService) CreateLot(ctx context.Context, req domain.CreateLotRequest) (domain.Lot, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Lot), args.Error(1)
}

func (m *MockLotService) DeleteLot(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockInventoryClient é uma implementação mock do cliente de inventário externo
type MockInventoryClient struct {
	mock.Mock
}

func (m *MockInventoryClient) ResolveItem(ctx context.Context, unitID string) (string, bool, error) {
	args := m.Called(ctx, unitID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockInventoryClient) Adjust(ctx context.Context, itemID, locationID string, delta int) error {
	args := m.Called(ctx, itemID, locationID, delta)
	return args.Error(0)
}

func newWorkflow(lots *MockLotService, inventory *MockInventoryClient) *provisioningservice.Service {
	log := logger.NewLogger("debug")
	return provisioningservice.NewService(lots, inventory, saga.NewRunner(log), "loc-main", log)
}

func provisionRequest() domain.CreateLotRequest {
	return domain.CreateLotRequest{
		UnitID:     "unit-001",
		LotNumber:  "L-2026-07",
		ExpiryDate: time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC),
		Quantity:   120,
	}
}

// TestProvisionBatch_Success_Synced testa o caminho feliz: lote criado e
// quantidade refletida no inventário externo.
func TestProvisionBatch_Success_Synced(t *testing.T) {
	mockLots := new(MockLotService)
	mockInventory := new(MockInventoryClient)
	svc := newWorkflow(mockLots, mockInventory)

	req := provisionRequest()
	created := domain.Lot{ID: uuid.New().String(), UnitID: req.UnitID, LotNumber: req.LotNumber, Quantity: req.Quantity}

	mockLots.On("CreateLot", mock.Anything, req).Return(created, nil)
	mockInventory.On("ResolveItem", mock.Anything, req.UnitID).Return("item-42", true, nil)
	mockInventory.On("Adjust", mock.Anything, "item-42", "loc-main", 120).Return(nil)

	result, err := svc.ProvisionBatch(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, provisioningservice.SyncStateSynced, result.SyncState)
	assert.Equal(t, created.ID, result.Lot.ID)
	mockLots.AssertExpectations(t)
	mockInventory.AssertExpectations(t)
	// Nenhuma compensação no caminho feliz.
	mockLots.AssertNotCalled(t, "DeleteLot")
}

// TestProvisionBatch_Success_UnboundUnitSkipsSync testa a unidade sem vínculo
// de inventário: o lote é criado e a sincronização é pulada, sem erro.
func TestProvisionBatch_Success_UnboundUnitSkipsSync(t *testing.T) {
	mockLots := new(MockLotService)
	mockInventory := new(MockInventoryClient)
	svc := newWorkflow(mockLots, mockInventory)

	req := provisionRequest()
	created := domain.Lot{ID: uuid.New().String(), UnitID: req.UnitID, Quantity: req.Quantity}

	mockLots.On("CreateLot", mock.Anything, req).Return(created, nil)
	mockInventory.On("ResolveItem", mock.Anything, req.UnitID).Return("", false, nil)

	result, err := svc.ProvisionBatch(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, provisioningservice.SyncStateSkipped, result.SyncState)
	assert.Equal(t, created.ID, result.Lot.ID)
	mockInventory.AssertNotCalled(t, "Adjust")
	mockLots.AssertNotCalled(t, "DeleteLot")
}

// TestProvisionBatch_Fail_SyncFailureCompensates testa a reversão: quando o
// ajuste externo falha, o lote recém-criado é removido e o chamador recebe
// um erro de sincronização — nunca um estado meio-aplicado como sucesso.
func TestProvisionBatch_Fail_SyncFailureCompensates(t *testing.T) {
	mockLots := new(MockLotService)
	mockInventory := new(MockInventoryClient)
	svc := newWorkflow(mockLots, mockInventory)

	req := provisionRequest()
	created := domain.Lot{ID: uuid.New().String(), UnitID: req.UnitID, Quantity: req.Quantity}
	adjustErr := errors.New("inventário externo indisponível")

	mockLots.On("CreateLot", mock.Anything, req).Return(created, nil)
	mockInventory.On("ResolveItem", mock.Anything, req.UnitID).Return("item-42", true, nil)
	mockInventory.On("Adjust", mock.Anything, "item-42", "loc-main", 120).Return(adjustErr)
	mockLots.On("DeleteLot", mock.Anything, created.ID).Return(nil)

	_, err := svc.ProvisionBatch(context.Background(), req)

	var syncErr *apperror.SyncFailureError
	assert.ErrorAs(t, err, &syncErr)
	assert.ErrorIs(t, err, adjustErr)
	mockLots.AssertCalled(t, "DeleteLot", mock.Anything, created.ID)
}

// TestProvisionBatch_Fail_ResolveErrorCompensates testa que uma falha na
// resolução do item externo também reverte a criação do lote.
func TestProvisionBatch_Fail_ResolveErrorCompensates(t *testing.T) {
	mockLots := new(MockLotService)
	mockInventory := new(MockInventoryClient)
	svc := newWorkflow(mockLots, mockInventory)

	req := provisionRequest()
	created := domain.Lot{ID: uuid.New().String(), UnitID: req.UnitID, Quantity: req.Quantity}

	mockLots.On("CreateLot", mock.Anything, req).Return(created, nil)
	mockInventory.On("ResolveItem", mock.Anything, req.UnitID).Return("", false, errors.New("timeout"))
	mockLots.On("DeleteLot", mock.Anything, created.ID).Return(nil)

	_, err := svc.ProvisionBatch(context.Background(), req)

	var syncErr *apperror.SyncFailureError
	assert.ErrorAs(t, err, &syncErr)
	mockLots.AssertCalled(t, "DeleteLot", mock.Anything, created.ID)
	mockInventory.AssertNotCalled(t, "Adjust")
}

// TestProvisionBatch_Fail_CreateLotErrorIsTerminal testa que a falha do
// primeiro passo é propagada como veio, sem compensação e sem tocar o
// inventário externo.
func TestProvisionBatch_Fail_CreateLotErrorIsTerminal(t *testing.T) {
	mockLots := new(MockLotService)
	mockInventory := new(MockInventoryClient)
	svc := newWorkflow(mockLots, mockInventory)

	req := provisionRequest()
	validationErr := apperror.NewValidationError("A data de validade (expiry_date) é obrigatória.")

	mockLots.On("CreateLot", mock.Anything, req).Return(domain.Lot{}, validationErr)

	_, err := svc.ProvisionBatch(context.Background(), req)

	// O erro original chega intacto (não é embrulhado como falha de sync).
	assert.ErrorIs(t, err, validationErr)
	var syncErr *apperror.SyncFailureError
	assert.False(t, errors.As(err, &syncErr))
	mockLots.AssertNotCalled(t, "DeleteLot")
	mockInventory.AssertNotCalled(t, "ResolveItem")
}
