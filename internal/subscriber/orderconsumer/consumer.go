package orderconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"pharmastock/internal/domain"
	"pharmastock/internal/pkg/cache"
	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/pkg/orderclient"
)

// Allocator define o contrato que o Subscriber espera do Alocador FEFO.
type Allocator interface {
	Allocate(ctx context.Context, req domain.AllocationRequest) (domain.AllocationResult, error)
}

// DedupStore registra pedidos já consumidos (fonte de verdade do dedup).
type DedupStore interface {
	MarkProcessed(ctx context.Context, orderID string) (bool, error)
}

// TTL da chave de dedup no Redis. O Postgres continua sendo a fonte de
// verdade; a chave só poupa uma ida ao banco em redeliveries quentes.
const dedupCacheTTL = 24 * time.Hour

// Consumer é o Subscriber de Consumo de Pedidos: reage ao evento externo
// order.placed e deduz estoque por item de linha via Alocador.
//
// O consumo é fire-and-forget em relação à origem do evento: não há canal de
// resultado de volta para quem registrou o pedido. Cada item de linha é
// alocado de forma independente — falha ou alocação parcial em um item nunca
// bloqueia os demais, e o pedido em si não é revertido (ele já foi confirmado
// upstream).
type Consumer struct {
	reader    *kafka.Reader
	allocator Allocator
	orders    orderclient.Client
	dedup     DedupStore
	cache     cache.Client
	logger    logger.Logger
}

// NewConsumer cria o consumidor do tópico order.placed.
func NewConsumer(
	brokers []string,
	topic, groupID string,
	allocator Allocator,
	orders orderclient.Client,
	dedup DedupStore,
	cacheClient cache.Client,
	log logger.Logger,
) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})

	return &Consumer{
		reader:    reader,
		allocator: allocator,
		orders:    orders,
		dedup:     dedup,
		cache:     cacheClient,
		logger:    log,
	}
}

// Start inicia o loop de consumo. Bloqueia até o contexto ser cancelado.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("Subscriber de pedidos iniciado.", map[string]interface{}{
		"topic": c.reader.Config().Topic,
		"group": c.reader.Config().GroupID,
	})

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("Subscriber de pedidos encerrado.", nil)
				return
			}
			c.logger.Error("Falha ao ler mensagem do tópico de pedidos.", err)
			continue
		}

		// Erros de processamento são engolidos dentro do handler (logados):
		// priorizamos disponibilidade sobre atendimento tudo-ou-nada.
		c.HandleMessage(ctx, m.Value)
	}
}

// Close encerra o leitor Kafka.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// HandleMessage processa um único evento order.placed.
// Exportado separadamente do loop para ser testável sem um broker.
func (c *Consumer) HandleMessage(ctx context.Context, payload []byte) {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// JSON inválido nunca é reprocessado: logar e descartar.
		c.logger.Error("Evento order.placed com payload inválido. Descartando.", err)
		return
	}
	if event.OrderID == "" {
		c.logger.Warn("Evento order.placed sem id de pedido. Descartando.", nil)
		return
	}

	// 1. Buscar os itens de linha do pedido (somente leitura; uma falha aqui
	// não marca o pedido como processado, permitindo reprocesso na redelivery).
	lines, err := c.orders.GetOrderLines(ctx, event.OrderID)
	if err != nil {
		c.logger.Error("Falha ao buscar itens do pedido. Evento será reprocessado em redelivery.", err)
		return
	}

	// 2. Dedup antes de qualquer dedução: entrega at-least-once não pode
	// virar dupla dedução de estoque.
	if !c.claimOrder(ctx, event.OrderID) {
		c.logger.Info("Pedido já processado anteriormente. Ignorando redelivery.", map[string]interface{}{
			"order_id": event.OrderID,
		})
		return
	}

	c.logger.Info("Processando dedução de estoque do pedido.", map[string]interface{}{
		"order_id": event.OrderID,
		"lines":    len(lines),
	})

	// 3. Alocar item a item, na ordem de inserção do pedido.
	for i, line := range lines {
		if line.UnitID == "" {
			// Item sem unidade estocável rastreada: pular com aviso, não é erro.
			c.logger.Warn("Item de linha sem unidade estocável. Pulando.", map[string]interface{}{
				"order_id": event.OrderID,
				"line":     i,
			})
			continue
		}

		result, err := c.allocator.Allocate(ctx, domain.AllocationRequest{
			UnitID:   line.UnitID,
			Quantity: line.Quantity,
		})
		if err != nil {
			// Erro em um item não bloqueia os demais.
			c.logger.Error("Falha ao alocar item de linha. Continuando com os próximos itens.", err)
			continue
		}

		if result.Shortfall > 0 {
			c.logger.Warn("Shortfall na dedução de item do pedido.", map[string]interface{}{
				"order_id":  event.OrderID,
				"unit_id":   line.UnitID,
				"requested": result.Requested,
				"allocated": result.Allocated,
				"shortfall": result.Shortfall,
			})
		}
	}
}

// claimOrder tenta reivindicar o pedido para processamento.
// Caminho rápido via Redis (SETNX), com o Postgres como fonte de verdade.
func (c *Consumer) claimOrder(ctx context.Context, orderID string) bool {
	key := "order-processed:" + orderID

	if created, err := c.cache.SetNX(ctx, key, 1, dedupCacheTTL); err == nil && !created {
		// Outra entrega já reivindicou este pedido recentemente.
		return false
	}
	// Erro de cache não decide nada: o registro durável abaixo é quem manda.

	first, err := c.dedup.MarkProcessed(ctx, orderID)
	if err != nil {
		c.logger.Error("Falha no registro durável de dedup. Processando mesmo assim para não perder a dedução.", err)
		return true
	}
	return first
}
