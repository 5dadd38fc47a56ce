package domain

import "time"

// Operator representa um operador do sistema (farmacêutico ou administrador)
// com acesso às rotas de gestão de lotes.
type Operator struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Oculta o hash da senha no JSON de resposta
	Role         OperatorRole `json:"role"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// OperatorRole é um tipo string para representar o papel do operador no sistema.
type OperatorRole string

const (
	RoleAdmin      OperatorRole = "admin"
	RolePharmacist OperatorRole = "pharmacist"
)

// OperatorRegistration representa o payload de entrada para o registro.
type OperatorRegistration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
