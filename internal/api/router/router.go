package router

import (
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"pharmastock/internal/api/batch"
	"pharmastock/internal/api/operator"
	"pharmastock/internal/domain"
	"pharmastock/internal/pkg/cache"
	"pharmastock/internal/pkg/middleware"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(batchHandler *batch.Handler, operatorHandler *operator.Handler, tokenSvc middleware.TokenService, cacheClient cache.Client, rateLimit int, ratePeriod time.Duration) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	mux := http.NewServeMux()

	// Middlewares de autenticação e autorização.
	// Mutações no ledger exigem operador autenticado; correções administrativas
	// (PATCH/DELETE) exigem o perfil admin.
	auth := middleware.NewAuthMiddleware(tokenSvc)
	adminOnly := middleware.PermissionMiddleware(domain.RoleAdmin)
	anyOperator := middleware.PermissionMiddleware(domain.RoleAdmin, domain.RolePharmacist)

	// --- 1. Rotas de Health Check ---
	mux.HandleFunc("/ping", PingHandler)

	// --- 2. Rotas de Operadores (públicas) ---
	mux.HandleFunc("/v1/register", operatorHandler.RegisterHandler)
	mux.HandleFunc("/v1/login", operatorHandler.LoginHandler)

	// --- 3. Rotas de Lotes (v1) ---

	// POST /v1/batches (provisionar) e GET /v1/batches (listar por unidade)
	mux.HandleFunc("/v1/batches", func(w http.ResponseWriter, r *http.Request) {
		// Listagem é aberta para integrações internas; criação exige operador.
		if r.Method == http.MethodGet {
			batchHandler.ListBatchesHandler(w, r)
			return
		}
		auth(anyOperator(batchHandler.CreateBatchHandler))(w, r)
	})

	// GET/PATCH/DELETE /v1/batches/{id}
	mux.HandleFunc("/v1/batches/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			batchHandler.BatchByIDHandler(w, r)
			return
		}
		auth(adminOnly(batchHandler.BatchByIDHandler))(w, r)
	})

	// --- 4. Rotas de Alocação FEFO ---
	mux.HandleFunc("/v1/allocations", auth(anyOperator(batchHandler.AllocateHandler)))

	// --- 5. Documentação Swagger ---
	mux.Handle("/swagger/", httpSwagger.Handler())

	// --- 6. Middlewares Globais ---
	// Rate limiting por IP usando o Redis (janela fixa).
	limited := middleware.RateLimiter(cacheClient, rateLimit, ratePeriod)(mux)

	return limited
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
