package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/service/provisioningservice"
)

// ProvisioningService define o contrato do Workflow de Provisionamento de Lote.
type ProvisioningService interface {
	ProvisionBatch(ctx context.Context, req domain.CreateLotRequest) (provisioningservice.ProvisionResult, error)
}

// LotService define o contrato do Serviço de Lotes (listagem e correções).
type LotService interface {
	GetLotByID(ctx context.Context, id string) (domain.Lot, error)
	ListLots(ctx context.Context, filter domain.LotFilter) ([]domain.Lot, error)
	UpdateLot(ctx context.Context, id string, req domain.UpdateLotRequest) (domain.Lot, error)
	DeleteLot(ctx context.Context, id string) error
}

// AllocationService define o contrato do Alocador FEFO.
type AllocationService interface {
	Allocate(ctx context.Context, req domain.AllocationRequest) (domain.AllocationResult, error)
}

// Handler agrupa todos os métodos de Handler de lotes e alocações.
type Handler struct {
	Provisioning ProvisioningService
	Lots         LotService
	Allocator    AllocationService
	Logger       logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os Serviços e o Logger.
func NewHandler(provisioning ProvisioningService, lots LotService, allocator AllocationService, log logger.Logger) *Handler {
	return &Handler{
		Provisioning: provisioning,
		Lots:         lots,
		Allocator:    allocator,
		Logger:       log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		// Sucesso
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// CreateBatchHandler lida com a requisição POST /v1/batches.
// A criação passa sempre pelo workflow de provisionamento: persistir o lote e
// sincronizar a quantidade no inventário externo, com compensação em falha.
// @Summary Cria um novo lote
// @Description Cria um lote no ledger e sincroniza a quantidade no inventário externo (workflow com compensação).
// @Tags batches
// @Accept json
// @Produce json
// @Param batch body domain.CreateLotRequest true "Dados do lote para criação"
// @Success 201 {object} provisioningservice.ProvisionResult "Lote criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido (quantidade negativa, validade ausente)"
// @Failure 502 {object} domain.ErrorResponse "Falha de sincronização; lote revertido"
// @Security ApiKeyAuth
// @Router /batches [post]
func (h *Handler) CreateBatchHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var req domain.CreateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	result, err := h.Provisioning.ProvisionBatch(ctx, req)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, result, nil, http.StatusCreated)
}

// ListBatchesHandler lida com a requisição GET /v1/batches?unit_id=...
// @Summary Lista os lotes de uma unidade estocável
// @Description Retorna os lotes da unidade. Por padrão em ordem de criação; use fefo=true para ordem de validade.
// @Tags batches
// @Produce json
// @Param unit_id query string true "ID da unidade estocável"
// @Param only_with_stock query bool false "Filtrar para lotes com saldo"
// @Param fefo query bool false "Ordenar por validade ascendente (FEFO)"
// @Success 200 {array} domain.Lot "Lotes da unidade"
// @Failure 400 {object} domain.ErrorResponse "unit_id ausente"
// @Router /batches [get]
func (h *Handler) ListBatchesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	query := r.URL.Query()

	filter := domain.LotFilter{
		UnitID:        query.Get("unit_id"),
		OnlyWithStock: query.Get("only_with_stock") == "true",
		FEFOOrder:     query.Get("fefo") == "true",
	}

	lots, err := h.Lots.ListLots(ctx, filter)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, lots, nil, http.StatusOK)
}

// BatchByIDHandler despacha GET/PATCH/DELETE em /v1/batches/{id}.
// PATCH e DELETE são correções administrativas: não passam pela lógica de alocação.
func (h *Handler) BatchByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Id de lote inválido", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getBatchByID(w, r, id)
	case http.MethodPatch:
		h.updateBatch(w, r, id)
	case http.MethodDelete:
		h.deleteBatch(w, r, id)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// getBatchByID lida com GET /v1/batches/{id}.
// @Summary Obtém um lote por ID
// @Tags batches
// @Produce json
// @Param id path string true "ID do Lote"
// @Success 200 {object} domain.Lot "Lote encontrado"
// @Failure 404 {object} domain.ErrorResponse "Lote não encontrado"
// @Router /batches/{id} [get]
func (h *Handler) getBatchByID(w http.ResponseWriter, r *http.Request, id string) {
	lot, err := h.Lots.GetLotByID(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, lot, nil, http.StatusOK)
}

// updateBatch lida com PATCH /v1/batches/{id}.
// @Summary Correção administrativa de um lote
// @Description Atualiza campos do lote (e.g., consertar validade). Não participa da alocação.
// @Tags batches
// @Accept json
// @Produce json
// @Param id path string true "ID do Lote"
// @Param batch body domain.UpdateLotRequest true "Campos a corrigir"
// @Success 200 {object} domain.Lot "Lote atualizado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Lote não encontrado"
// @Security ApiKeyAuth
// @Router /batches/{id} [patch]
func (h *Handler) updateBatch(w http.ResponseWriter, r *http.Request, id string) {
	var req domain.UpdateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	lot, err := h.Lots.UpdateLot(r.Context(), id, req)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, lot, nil, http.StatusOK)
}

// deleteBatch lida com DELETE /v1/batches/{id}.
// @Summary Remove um lote definitivamente
// @Tags batches
// @Produce json
// @Param id path string true "ID do Lote"
// @Success 200 {object} map[string]interface{} "Lote removido"
// @Failure 404 {object} domain.ErrorResponse "Lote não encontrado"
// @Security ApiKeyAuth
// @Router /batches/{id} [delete]
func (h *Handler) deleteBatch(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.Lots.DeleteLot(r.Context(), id); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}
	h.handleServiceResponse(w, r, map[string]interface{}{"id": id, "deleted": true}, nil, http.StatusOK)
}

// AllocateHandler lida com a requisição POST /v1/allocations.
// Ponto de entrada programático da alocação FEFO para chamadores internos.
// @Summary Aloca estoque de uma unidade em ordem FEFO
// @Description Consome lotes em ordem de validade. O resultado distingue alocação total de parcial (shortfall), nunca um booleano.
// @Tags allocations
// @Accept json
// @Produce json
// @Param allocation body domain.AllocationRequest true "Unidade e quantidade a alocar"
// @Success 200 {object} domain.AllocationResult "Resultado estruturado da alocação"
// @Failure 400 {object} domain.ErrorResponse "Quantidade não positiva"
// @Failure 409 {object} domain.ErrorResponse "Saldo insuficiente (apenas em modo estrito)"
// @Security ApiKeyAuth
// @Router /allocations [post]
func (h *Handler) AllocateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var req domain.AllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	result, err := h.Allocator.Allocate(ctx, req)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, result, nil, http.StatusOK)
}
