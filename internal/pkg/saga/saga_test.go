package saga_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"pharmastock/internal/pkg/logger"
	"pharmastock/internal/pkg/saga"
)

// TestRun_Success_AllStepsComplete testa o caminho feliz: todos os passos
// executam em ordem e nenhuma compensação é chamada.
func TestRun_Success_AllStepsComplete(t *testing.T) {
	mockLogger := logger.NewLogger("debug")
	runner := saga.NewRunner(mockLogger)

	var trace []string

	steps := []saga.Step{
		{
			Name:       "step-1",
			Action:     func(ctx context.Context) error { trace = append(trace, "a1"); return nil },
			Compensate: func(ctx context.Context) error { trace = append(trace, "c1"); return nil },
		},
		{
			Name:       "step-2",
			Action:     func(ctx context.Context) error { trace = append(trace, "a2"); return nil },
			Compensate: func(ctx context.Context) error { trace = append(trace, "c2"); return nil },
		},
	}

	state, err := runner.Run(context.Background(), "test-workflow", steps)

	assert.NoError(t, err)
	assert.Equal(t, saga.StateComplete, state)
	assert.Equal(t, []string{"a1", "a2"}, trace)
}

// TestRun_Fail_CompensatesInReverseOrder testa que a falha de um passo
// dispara as compensações dos passos anteriores em ordem reversa.
func TestRun_Fail_CompensatesInReverseOrder(t *testing.T) {
	mockLogger := logger.NewLogger("debug")
	runner := saga.NewRunner(mockLogger)

	var trace []string
	actionErr := errors.New("passo 3 falhou")

	steps := []saga.Step{
		{
			Name:       "step-1",
			Action:     func(ctx context.Context) error { trace = append(trace, "a1"); return nil },
			Compensate: func(ctx context.Context) error { trace = append(trace, "c1"); return nil },
		},
		{
			Name:       "step-2",
			Action:     func(ctx context.Context) error { trace = append(trace, "a2"); return nil },
			Compensate: func(ctx context.Context) error { trace = append(trace, "c2"); return nil },
		},
		{
			Name:   "step-3",
			Action: func(ctx context.Context) error { trace = append(trace, "a3"); return actionErr },
		},
	}

	state, err := runner.Run(context.Background(), "test-workflow", steps)

	// O erro original da ação é propagado, não o de compensação.
	assert.ErrorIs(t, err, actionErr)
	assert.Equal(t, saga.StateRolledBack, state)
	// Compensação em ordem reversa: c2 antes de c1.
	assert.Equal(t, []string{"a1", "a2", "a3", "c2", "c1"}, trace)
}

// TestRun_Fail_FirstStep testa que a falha do primeiro passo não executa
// nenhuma compensação (não há nada aplicado para desfazer).
func TestRun_Fail_FirstStep(t *testing.T) {
	mockLogger := logger.NewLogger("debug")
	runner := saga.NewRunner(mockLogger)

	var compensated bool
	actionErr := errors.New("passo 1 falhou")

	steps := []saga.Step{
		{
			Name:       "step-1",
			Action:     func(ctx context.Context) error { return actionErr },
			Compensate: func(ctx context.Context) error { compensated = true; return nil },
		},
		{
			Name:   "step-2",
			Action: func(ctx context.Context) error { t.Fatal("passo 2 não deveria executar"); return nil },
		},
	}

	state, err := runner.Run(context.Background(), "test-workflow", steps)

	assert.ErrorIs(t, err, actionErr)
	assert.Equal(t, saga.StateRolledBack, state)
	assert.False(t, compensated)
}

// TestRun_Fail_CompensationErrorDoesNotMaskActionError testa que uma falha
// de compensação é logada mas o erro retornado continua sendo o da ação.
func TestRun_Fail_CompensationErrorDoesNotMaskActionError(t *testing.T) {
	mockLogger := logger.NewLogger("debug")
	runner := saga.NewRunner(mockLogger)

	actionErr := errors.New("ação falhou")
	compErr := errors.New("compensação falhou")
	var laterCompensated bool

	steps := []saga.Step{
		{
			Name:       "step-1",
			Action:     func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { laterCompensated = true; return nil },
		},
		{
			Name:       "step-2",
			Action:     func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { return compErr },
		},
		{
			Name:   "step-3",
			Action: func(ctx context.Context) error { return actionErr },
		},
	}

	state, err := runner.Run(context.Background(), "test-workflow", steps)

	assert.ErrorIs(t, err, actionErr)
	assert.Equal(t, saga.StateRolledBack, state)
	// A falha em c2 não interrompe a cadeia: c1 ainda roda.
	assert.True(t, laterCompensated)
}

// TestRun_Fail_NilCompensationIsSkipped testa que passos sem compensação
// (somente-leitura) são simplesmente pulados no rollback.
func TestRun_Fail_NilCompensationIsSkipped(t *testing.T) {
	mockLogger := logger.NewLogger("debug")
	runner := saga.NewRunner(mockLogger)

	var trace []string
	actionErr := errors.New("ação falhou")

	steps := []saga.Step{
		{
			Name:       "step-1",
			Action:     func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error { trace = append(trace, "c1"); return nil },
		},
		{
			Name:   "step-2-readonly",
			Action: func(ctx context.Context) error { return nil },
			// Sem Compensate: nada a desfazer
		},
		{
			Name:   "step-3",
			Action: func(ctx context.Context) error { return actionErr },
		},
	}

	state, err := runner.Run(context.Background(), "test-workflow", steps)

	assert.ErrorIs(t, err, actionErr)
	assert.Equal(t, saga.StateRolledBack, state)
	assert.Equal(t, []string{"c1"}, trace)
}

// TestRun_CompensationRunsWithCancelledContext testa que a compensação executa
// mesmo quando o contexto original já foi cancelado.
func TestRun_CompensationRunsWithCancelledContext(t *testing.T) {
	mockLogger := logger.NewLogger("debug")
	runner := saga.NewRunner(mockLogger)

	ctx, cancel := context.WithCancel(context.Background())

	var compCtxErr error

	steps := []saga.Step{
		{
			Name:   "step-1",
			Action: func(ctx context.Context) error { return nil },
			Compensate: func(ctx context.Context) error {
				compCtxErr = ctx.Err()
				return nil
			},
		},
		{
			Name: "step-2",
			Action: func(ctx context.Context) error {
				cancel() // Simula o cancelamento do chamador no meio do workflow
				return errors.New("falhou após cancelamento")
			},
		},
	}

	state, err := runner.Run(ctx, "test-workflow", steps)

	assert.Error(t, err)
	assert.Equal(t, saga.StateRolledBack, state)
	// O contexto da compensação não herda o cancelamento do chamador.
	assert.NoError(t, compCtxErr)
}
