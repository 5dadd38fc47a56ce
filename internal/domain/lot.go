package domain

import "time"

// Lot representa um lote físico de uma unidade estocável: uma quantidade
// fabricada em conjunto, compartilhando uma única data de validade.
// A quantidade é mutada apenas pelo Alocador (decremento FEFO) ou por
// correção administrativa explícita.
type Lot struct {
	ID                string     `json:"id"`
	UnitID            string     `json:"unit_id"`    // Unidade estocável (e.g., variante de produto). Não é única: muitos lotes por unidade.
	LotNumber         string     `json:"lot_number"` // Código de lote legível (texto livre, não necessariamente único entre unidades)
	ExpiryDate        time.Time  `json:"expiry_date"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"` // Informacional
	Quantity          int        `json:"quantity"`                     // Invariante: sempre >= 0
	Barcode           string     `json:"barcode,omitempty"`            // Informacional
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsExpired informa se o lote já passou da data de validade.
func (l *Lot) IsExpired(now time.Time) bool {
	return l.ExpiryDate.Before(now)
}

// HasStock informa se o lote ainda tem quantidade alocável.
// Um lote com quantidade zero permanece no ledger (soft-exhausted) para
// preservar o histórico de auditoria.
func (l *Lot) HasStock() bool {
	return l.Quantity > 0
}

// CreateLotRequest é o payload esperado para a criação de um lote
// (POST /v1/batches). A criação sempre passa pelo workflow de provisionamento.
type CreateLotRequest struct {
	UnitID            string     `json:"unit_id"`
	LotNumber         string     `json:"lot_number"`
	ExpiryDate        time.Time  `json:"expiry_date"`
	Quantity          int        `json:"quantity"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	Barcode           string     `json:"barcode,omitempty"`
}

// UpdateLotRequest é o payload de correção administrativa (PATCH /v1/batches/{id}).
// Campos nulos não são alterados. Esta operação não participa da lógica de
// alocação: é a via de correção de cadastro (e.g., consertar uma validade).
type UpdateLotRequest struct {
	LotNumber         *string    `json:"lot_number,omitempty"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	Quantity          *int       `json:"quantity,omitempty"`
	ManufacturingDate *time.Time `json:"manufacturing_date,omitempty"`
	Barcode           *string    `json:"barcode,omitempty"`
}

// LotFilter define os parâmetros de listagem de lotes de uma unidade.
type LotFilter struct {
	UnitID        string
	OnlyWithStock bool // Filtra para quantity > 0
	FEFOOrder     bool // Ordena por expiry_date ASC (desempate por created_at)
}
