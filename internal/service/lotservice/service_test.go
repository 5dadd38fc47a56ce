package lotservice_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/service/lotservice"
)

// MockLotRepository é uma implementação mock da interface LotRepository
type MockLotRepository struct {
	mock.Mock
}

func (m *MockLotRepository) Save(ctx context.Context, lot domain.Lot) (domain.Lot, error) {
	args := m.Called(ctx, lot)
	return args.Get(0).(domain.Lot), args.Error(1)
}

func (m *MockLotRepository) FindByID(ctx context.Context, id string) (domain.Lot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Lot), args.Error(1)
}

func (m *MockLotRepository) FindByUnit(ctx context.Context, filter domain.LotFilter) ([]domain.Lot, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Lot), args.Error(1)
}

func (m *MockLotRepository) Update(ctx context.Context, id string, req domain.UpdateLotRequest) (domain.Lot, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(domain.Lot), args.Error(1)
}

func (m *MockLotRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func validCreateRequest() domain.CreateLotRequest {
	return domain.CreateLotRequest{
		UnitID:     "unit-001",
		LotNumber:  "L-2026-01",
		ExpiryDate: time.Date(2027, 6, 30, 0, 0, 0, 0, time.UTC),
		Quantity:   50,
	}
}

// TestCreateLot_Success testa a criação de um lote válido.
func TestCreateLot_Success(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	req := validCreateRequest()
	saved := domain.Lot{
		ID:         uuid.New().String(),
		UnitID:     req.UnitID,
		LotNumber:  req.LotNumber,
		ExpiryDate: req.ExpiryDate,
		Quantity:   req.Quantity,
	}

	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("domain.Lot")).Return(saved, nil)

	created, err := svc.CreateLot(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, saved.ID, created.ID)
	assert.Equal(t, 50, created.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestCreateLot_Success_ZeroQuantity testa que um lote com quantidade zero
// é válido (lote placeholder/vazio).
func TestCreateLot_Success_ZeroQuantity(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	req := validCreateRequest()
	req.Quantity = 0

	saved := domain.Lot{ID: uuid.New().String(), UnitID: req.UnitID, LotNumber: req.LotNumber, ExpiryDate: req.ExpiryDate}
	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("domain.Lot")).Return(saved, nil)

	created, err := svc.CreateLot(context.Background(), req)

	assert.NoError(t, err)
	assert.Equal(t, 0, created.Quantity)
	mockRepo.AssertExpectations(t)
}

// TestCreateLot_Fail_NegativeQuantity testa a rejeição de quantidade negativa.
func TestCreateLot_Fail_NegativeQuantity(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	req := validCreateRequest()
	req.Quantity = -1

	_, err := svc.CreateLot(context.Background(), req)

	assert.Error(t, err)
	var appErr apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Category())
	mockRepo.AssertNotCalled(t, "Save")
}

// TestCreateLot_Fail_MissingExpiryDate testa a rejeição de lote sem validade.
func TestCreateLot_Fail_MissingExpiryDate(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	req := validCreateRequest()
	req.ExpiryDate = time.Time{}

	_, err := svc.CreateLot(context.Background(), req)

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "Save")
}

// TestCreateLot_Fail_MissingUnitID testa a rejeição de lote sem unidade.
func TestCreateLot_Fail_MissingUnitID(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	req := validCreateRequest()
	req.UnitID = ""

	_, err := svc.CreateLot(context.Background(), req)

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "Save")
}

// TestListLots_Fail_MissingUnitID testa que a listagem exige unit_id.
func TestListLots_Fail_MissingUnitID(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	_, err := svc.ListLots(context.Background(), domain.LotFilter{})

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "FindByUnit")
}

// TestUpdateLot_Success testa a correção administrativa de uma validade.
func TestUpdateLot_Success(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	id := uuid.New().String()
	newExpiry := time.Date(2028, 1, 15, 0, 0, 0, 0, time.UTC)
	req := domain.UpdateLotRequest{ExpiryDate: &newExpiry}

	updated := domain.Lot{ID: id, UnitID: "unit-001", ExpiryDate: newExpiry, Quantity: 40}
	mockRepo.On("Update", mock.Anything, id, req).Return(updated, nil)

	lot, err := svc.UpdateLot(context.Background(), id, req)

	assert.NoError(t, err)
	assert.Equal(t, newExpiry, lot.ExpiryDate)
	mockRepo.AssertExpectations(t)
}

// TestUpdateLot_Fail_NegativeQuantity testa que a correção não aceita saldo negativo.
func TestUpdateLot_Fail_NegativeQuantity(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	bad := -5
	_, err := svc.UpdateLot(context.Background(), uuid.New().String(), domain.UpdateLotRequest{Quantity: &bad})

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "Update")
}

// TestDeleteLot_Fail_NotFound testa a propagação do NotFound do repositório.
func TestDeleteLot_Fail_NotFound(t *testing.T) {
	mockRepo := new(MockLotRepository)
	mockLogger := logger.NewLogger("debug")
	svc := lotservice.NewService(mockRepo, mockLogger)

	id := uuid.New().String()
	mockRepo.On("Delete", mock.Anything, id).Return(apperror.NewNotFoundError("Lote não encontrado."))

	err := svc.DeleteLot(context.Background(), id)

	assert.Error(t, err)
	mockRepo.AssertExpectations(t)
}
