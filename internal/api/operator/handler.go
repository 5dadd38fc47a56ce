package operator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pharmastock/internal/domain"
	apperror "pharmastock/internal/errors"
	"pharmastock/internal/pkg/logger"
)

// OperatorService define o contrato do Serviço de Operadores.
type OperatorService interface {
	Register(ctx context.Context, reg domain.OperatorRegistration) (domain.Operator, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// Handler agrupa os métodos de Handler de operadores.
type Handler struct {
	Service OperatorService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Serviço e o Logger.
func NewHandler(service OperatorService, log logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
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

// RegisterHandler lida com a requisição POST /v1/register.
// @Summary Registra um novo operador
// @Description Cria um operador com senha criptografada. O perfil padrão é pharmacist.
// @Tags operators
// @Accept json
// @Produce json
// @Param operator body domain.OperatorRegistration true "Dados do operador"
// @Success 201 {object} domain.Operator "Operador criado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "E-mail já cadastrado"
// @Router /register [post]
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var reg domain.OperatorRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	created, err := h.Service.Register(r.Context(), reg)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	// Nunca devolver o hash da senha
	created.PasswordHash = ""
	h.handleServiceResponse(w, r, created, nil, http.StatusCreated)
}

// LoginHandler lida com a requisição POST /v1/login.
// @Summary Autentica um operador
// @Description Valida as credenciais e retorna um token JWT.
// @Tags operators
// @Accept json
// @Produce json
// @Param credentials body object{email=string,password=string} true "Credenciais"
// @Success 200 {object} map[string]string "Token JWT"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Router /login [post]
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	token, err := h.Service.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, map[string]string{"token": token}, nil, http.StatusOK)
}
