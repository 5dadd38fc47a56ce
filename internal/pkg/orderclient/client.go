package orderclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pharmastock/internal/domain"
)

// Client define o contrato de consulta ao serviço de pedidos: dado o id de um
// pedido, retorna a sequência ordenada de itens de linha (unidade, quantidade).
type Client interface {
	GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
}

// HTTPClient é a implementação concreta via HTTP/JSON do serviço de pedidos.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient cria um novo cliente do serviço de pedidos.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// orderResponse é o corpo retornado por GET /internal/orders/{id}/lines.
type orderResponse struct {
	Lines []domain.OrderLine `json:"lines"`
}

// GetOrderLines busca os itens de linha do pedido, na ordem de inserção.
func (c *HTTPClient) GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	url := fmt.Sprintf("%s/internal/orders/%s/lines", c.baseURL, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("falha ao montar requisição de pedido: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("falha ao consultar o serviço de pedidos: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serviço de pedidos retornou status %d para o pedido %s", resp.StatusCode, orderID)
	}

	var body orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("falha ao decodificar itens do pedido: %w", err)
	}

	return body.Lines, nil
}
