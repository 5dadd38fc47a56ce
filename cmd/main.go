package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"pharmastock/config"
	"pharmastock/internal/pkg/cache"
	"pharmastock/internal/pkg/database"
	"pharmastock/internal/pkg/extinv"
	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/pkg/orderclient"
	"pharmastock/internal/pkg/saga"
	"pharmastock/internal/pkg/token"

	// Camadas do Ledger para Injeção de Dependências
	"pharmastock/internal/api/batch"    // Handlers
	"pharmastock/internal/api/operator" // Handlers de operador
	"pharmastock/internal/api/router"   // Roteador central
	"pharmastock/internal/repository/lotrepo"
	"pharmastock/internal/repository/operatorrepo"
	"pharmastock/internal/repository/orderlogrepo"
	"pharmastock/internal/service/allocationservice"
	"pharmastock/internal/service/lotservice"
	"pharmastock/internal/service/operatorservice"
	"pharmastock/internal/service/provisioningservice"
	"pharmastock/internal/subscriber/orderconsumer"
)

func main() {
	// 1. Configuração e Inicialização
	log.Println("⚡ Inicializando serviço PharmaStock...")
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos, mas continuamos,
		// pois as variáveis essenciais podem estar no ambiente (ex: Docker).
		log.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig() // Carrega as configurações (URLs, Timeouts, etc.)
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close() // Fecha a conexão de DB ao sair
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios (Camada de Acesso a Dados)
	lotRepo := lotrepo.NewLotRepository(db, cacheClient, cfg.DBTimeout, log)
	operatorRepo := operatorrepo.NewOperatorRepository(db, cfg.DBTimeout, log)
	orderLogRepo := orderlogrepo.NewOrderLogRepository(db, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// B. Colaboradores externos (clientes HTTP)
	inventoryClient := extinv.NewHTTPClient(cfg.InventoryServiceURL)
	ordersClient := orderclient.NewHTTPClient(cfg.OrderServiceURL)

	// C. Serviços (Camada de Lógica de Negócio)
	lotSvc := lotservice.NewService(lotRepo, log)

	allocationSvc := allocationservice.NewService(lotRepo, allocationservice.Policy{
		Strict:         cfg.AllocStrictMode,
		ExcludeExpired: cfg.AllocExcludeExpired,
	}, log)

	sagaRunner := saga.NewRunner(log)
	provisioningSvc := provisioningservice.NewService(lotSvc, inventoryClient, sagaRunner, cfg.StockLocationID, log)
	log.Debug("Serviços de Lote, Alocação e Provisionamento inicializados.", nil)

	// D. Serviço de Tokens (JWT) e Operadores
	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)
	operatorSvc := operatorservice.NewService(operatorRepo, tokenSvc, log)
	log.Debug("Serviços de Token e Operador inicializados.", nil)

	// E. Handlers (Camada de Apresentação)
	batchHandler := batch.NewHandler(provisioningSvc, lotSvc, allocationSvc, log)
	operatorHandler := operator.NewHandler(operatorSvc, log)
	log.Debug("Handlers inicializados.", nil)

	// 4. Consumidor de Eventos (order.placed)
	// Contexto próprio para podermos encerrar o consumidor no shutdown.
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()

	if cfg.ConsumerEnabled {
		consumer := orderconsumer.NewConsumer(
			cfg.KafkaBrokers,
			cfg.OrderTopic,
			cfg.ConsumerGroupID,
			allocationSvc,
			ordersClient,
			orderLogRepo,
			cacheClient,
			log,
		)
		defer consumer.Close()

		go consumer.Start(consumerCtx)
	} else {
		log.Info("Consumidor de pedidos desabilitado por configuração.", nil)
	}

	// 5. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(batchHandler, operatorHandler, tokenSvc, cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r, // O roteador final
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 6. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor PharmaStock ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Para o consumidor antes do servidor HTTP
	consumerCancel()

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
