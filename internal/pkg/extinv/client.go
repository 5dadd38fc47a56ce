package extinv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client define o contrato com o sistema de inventário externo.
// O núcleo só conhece duas operações: resolver o item de inventário vinculado
// a uma unidade estocável e ajustar a quantidade estocada em um local.
// A idempotência do ajuste é responsabilidade do chamador (workflow), via
// compensação — esta interface não a garante.
type Client interface {
	// ResolveItem retorna o id do item de inventário vinculado à unidade.
	// Uma unidade sem vínculo retorna found=false, nunca erro: um lote pode
	// existir antes da fiação do inventário estar completa.
	ResolveItem(ctx context.Context, unitID string) (itemID string, found bool, err error)
	// Adjust aplica um delta (positivo ou negativo) à quantidade estocada
	// do item no local informado.
	Adjust(ctx context.Context, itemID, locationID string, delta int) error
}

// HTTPClient é a implementação concreta via HTTP/JSON do serviço de inventário.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient cria um novo cliente do serviço de inventário externo.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// resolveResponse é o corpo retornado por GET /internal/units/{id}/inventory-item.
type resolveResponse struct {
	InventoryItemID string `json:"inventory_item_id"`
}

// ResolveItem consulta o vínculo unidade -> item de inventário.
func (c *HTTPClient) ResolveItem(ctx context.Context, unitID string) (string, bool, error) {
	url := fmt.Sprintf("%s/internal/units/%s/inventory-item", c.baseURL, unitID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, fmt.Errorf("falha ao montar requisição de resolução: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("falha ao consultar vínculo de inventário: %w", err)
	}
	defer resp.Body.Close()

	// 404 significa "sem vínculo", não é um erro do ponto de vista do núcleo.
	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("serviço de inventário retornou status %d", resp.StatusCode)
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", false, fmt.Errorf("falha ao decodificar resposta de resolução: %w", err)
	}
	if body.InventoryItemID == "" {
		return "", false, nil
	}

	return body.InventoryItemID, true, nil
}

// adjustRequest é o corpo enviado para POST /internal/inventory/adjust.
type adjustRequest struct {
	InventoryItemID string `json:"inventory_item_id"`
	LocationID      string `json:"location_id"`
	Delta           int    `json:"delta"`
}

// Adjust aplica um delta à quantidade estocada do item no local informado.
func (c *HTTPClient) Adjust(ctx context.Context, itemID, locationID string, delta int) error {
	payload, err := json.Marshal(adjustRequest{
		InventoryItemID: itemID,
		LocationID:      locationID,
		Delta:           delta,
	})
	if err != nil {
		return fmt.Errorf("falha ao serializar ajuste de inventário: %w", err)
	}

	url := fmt.Sprintf("%s/internal/inventory/adjust", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("falha ao montar requisição de ajuste: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("falha ao chamar ajuste de inventário: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("ajuste de inventário retornou status %d", resp.StatusCode)
	}

	return nil
}
