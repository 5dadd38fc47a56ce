package saga

import (
	"context"

	"pharmastock/internal/pkg/logger"
)

// Step é um par (ação, compensação) de um workflow transacional.
// A compensação desfaz a ação correspondente quando um passo posterior falha;
// pode ser nil quando não há nada a desfazer (e.g., passo somente-leitura).
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// State representa o estado corrente de uma execução do workflow.
type State string

const (
	StatePending    State = "PENDING"
	StateComplete   State = "COMPLETE"
	StateRolledBack State = "ROLLED_BACK"
)

// Runner executa uma lista ordenada de Steps. Na primeira falha de ação,
// as compensações dos passos já concluídos são executadas em ordem reversa
// e o erro original da ação é propagado ao chamador — o chamador nunca
// observa um estado parcialmente aplicado como sucesso.
type Runner struct {
	logger logger.Logger
}

// NewRunner cria um novo executor de workflows compensáveis.
func NewRunner(log logger.Logger) *Runner {
	return &Runner{logger: log}
}

// Run executa os passos em ordem e retorna o estado final junto com o erro
// da ação que falhou (se houver). Falhas de compensação são logadas mas não
// substituem o erro original.
func (r *Runner) Run(ctx context.Context, name string, steps []Step) (State, error) {
	state := StatePending

	for i, step := range steps {
		r.logger.Debug("Executando passo do workflow.", map[string]interface{}{
			"workflow": name,
			"step":     step.Name,
			"index":    i,
		})

		if err := step.Action(ctx); err != nil {
			r.logger.Error("Passo do workflow falhou. Iniciando compensação.", err)

			// Compensa os passos já concluídos em ordem reversa.
			// A compensação roda mesmo com o contexto original cancelado:
			// desfazer o que já foi aplicado tem prioridade sobre o prazo do chamador.
			for j := i - 1; j >= 0; j-- {
				if steps[j].Compensate == nil {
					continue
				}
				r.logger.Debug("Compensando passo do workflow.", map[string]interface{}{
					"workflow": name,
					"step":     steps[j].Name,
				})
				if compErr := steps[j].Compensate(context.WithoutCancel(ctx)); compErr != nil {
					// Falha de compensação deixa o sistema inconsistente:
					// logar com destaque para intervenção manual.
					r.logger.Error("Falha ao compensar passo do workflow. Intervenção manual necessária.", compErr)
				}
			}

			return StateRolledBack, err
		}
	}

	state = StateComplete
	return state, nil
}
