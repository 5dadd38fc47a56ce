package domain

// OrderPlacedEvent é o evento externo de "pedido confirmado" consumido do
// tópico Kafka. A entrega é at-least-once: o Subscriber deduplica pelo
// OrderID antes de disparar qualquer alocação.
type OrderPlacedEvent struct {
	OrderID string `json:"id"`
}

// OrderLine é um item de linha de um pedido: o par (unidade estocável,
// quantidade) retornado pelo serviço de pedidos.
type OrderLine struct {
	UnitID   string `json:"unit_id"`
	Quantity int    `json:"quantity"`
}
