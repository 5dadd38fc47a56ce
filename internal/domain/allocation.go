package domain

import "time"

// AllocationRequest é o payload da requisição de alocação programática
// (POST /v1/allocations) e também a entrada usada pelo Subscriber de pedidos.
type AllocationRequest struct {
	UnitID   string `json:"unit_id"`
	Quantity int    `json:"quantity"`
	// Flags opcionais por requisição; quando nulas, vale a política configurada.
	Strict         *bool `json:"strict,omitempty"`
	ExcludeExpired *bool `json:"exclude_expired,omitempty"`
}

// LotAllocation registra quanto foi consumido de um único lote durante uma alocação.
type LotAllocation struct {
	LotID      string    `json:"lot_id"`
	LotNumber  string    `json:"lot_number"`
	ExpiryDate time.Time `json:"expiry_date"`
	Taken      int       `json:"taken"`     // Quantidade retirada deste lote
	Remaining  int       `json:"remaining"` // Quantidade restante no lote após o decremento
}

// AllocationResult é o resultado estruturado de uma alocação FEFO.
// Transiente: usado para observabilidade e decisões do chamador, não persistido.
// A distinção entre "totalmente atendida" e "parcial com shortfall = N" nunca
// deve ser colapsada em um booleano.
type AllocationResult struct {
	UnitID    string          `json:"unit_id"`
	Requested int             `json:"requested"`
	Allocated int             `json:"allocated"`
	Shortfall int             `json:"shortfall"` // Parcela não atendida; > 0 indica alocação parcial
	Lines     []LotAllocation `json:"lines"`
}

// FullyFulfilled informa se toda a quantidade pedida foi alocada.
func (r *AllocationResult) FullyFulfilled() bool {
	return r.Shortfall == 0
}
