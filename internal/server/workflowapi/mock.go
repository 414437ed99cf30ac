package workflowapi

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dmitrijs2005/bmd/internal/common"
	"github.com/dmitrijs2005/bmd/internal/logging"
	"github.com/dmitrijs2005/bmd/internal/server/models"
	"github.com/google/uuid"
)

// MockRunner accepts every submission. Once started it reports running
// after half the delay and completed with random results after the full delay.
type MockRunner struct {
	delay  time.Duration
	logger logging.Logger

	mu       sync.RWMutex
	reporter StatusReporter
	ctx      context.Context

	wg sync.WaitGroup
}

// NewMockRunner returns a runner whose background runs stop when ctx is done.
func NewMockRunner(ctx context.Context, delay time.Duration, logger logging.Logger) *MockRunner {
	return &MockRunner{
		delay:  delay,
		logger: logger.With("module", "mockrunner"),
		ctx:    ctx,
	}
}

// Attach sets where status updates are delivered. Runs started before
// Attach report nowhere.
func (m *MockRunner) Attach(r StatusReporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reporter = r
}

func (m *MockRunner) Submit(ctx context.Context, s Submission) (models.SubmitReceipt, error) {
	id := uuid.NewString()
	m.logger.Info(ctx, "mock workflow accepted", "workflow_id", id, "species", s.TargetSpecies)
	return models.SubmitReceipt{WorkflowID: id, Status: common.StatusSubmitted}, nil
}

// Start begins the simulated run for an accepted workflow.
func (m *MockRunner) Start(workflowID string) {
	m.wg.Add(1)
	go m.run(workflowID)
}

// Wait blocks until every started run has finished or been cancelled.
func (m *MockRunner) Wait() {
	m.wg.Wait()
}

func (m *MockRunner) run(id string) {
	defer m.wg.Done()

	if !m.sleep(m.delay / 2) {
		return
	}
	m.report(id, models.StatusUpdate{WorkflowID: id, Status: common.StatusRunning})

	if !m.sleep(m.delay - m.delay/2) {
		return
	}

	results, err := json.Marshal(RandomResults(rand.N[int](1 << 30)))
	if err != nil {
		msg := fmt.Sprintf("encode results: %v", err)
		m.report(id, models.StatusUpdate{WorkflowID: id, Status: common.StatusFailed, ErrorMessage: &msg})
		return
	}
	m.report(id, models.StatusUpdate{WorkflowID: id, Status: common.StatusCompleted, Results: results})
}

func (m *MockRunner) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-m.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (m *MockRunner) report(id string, u models.StatusUpdate) {
	m.mu.RLock()
	r := m.reporter
	m.mu.RUnlock()
	if r == nil {
		return
	}

	if err := r.ApplyStatus(m.ctx, id, u); err != nil {
		m.logger.Warn(m.ctx, "mock status update failed", "workflow_id", id, "status", u.Status, "error", err)
		return
	}
	m.logger.Debug(m.ctx, "mock status update", "workflow_id", id, "status", u.Status)
}

var (
	mockSpecies = []string{
		"Lynx lynx", "Ursus arctos", "Canis lupus", "Rupicapra rupicapra",
		"Capra ibex", "Marmota marmota", "Aquila chrysaetos", "Tetrao urogallus",
	}
	mockVariables = []string{
		"bio1_annual_mean_temperature", "bio12_annual_precipitation",
		"elevation", "land_cover", "distance_to_water",
	}
)

// RandomResults produces a plausible-looking results payload. The same seed
// yields the same payload.
func RandomResults(seed int) models.Results {
	r := rand.New(rand.NewPCG(uint64(seed), 0x62_6d_64))

	round := func(v float64, places int) float64 {
		p := 1.0
		for range places {
			p *= 10
		}
		return float64(int(v*p+0.5)) / p
	}

	top := make([]models.SpeciesResult, 0, 5)
	for _, i := range r.Perm(len(mockSpecies))[:5] {
		top = append(top, models.SpeciesResult{
			Name:               mockSpecies[i],
			Occurrences:        50 + r.IntN(950),
			HabitatSuitability: round(0.4+r.Float64()*0.6, 2),
		})
	}

	vars := make(map[string]models.VariableContribution, len(mockVariables))
	remaining := 100.0
	for i, name := range mockVariables {
		share := remaining
		if i < len(mockVariables)-1 {
			share = round(remaining*(0.2+r.Float64()*0.4), 1)
		}
		remaining -= share
		vars[name] = models.VariableContribution{ContributionPct: round(share, 1)}
	}

	return models.Results{
		Summary: models.Summary{
			TotalSpecies:     10 + r.IntN(140),
			TotalOccurrences: 1000 + r.IntN(49000),
			AreaKm2:          round(100+r.Float64()*9900, 1),
		},
		ModelPerformance: models.ModelPerformance{
			AUCScore: round(0.7+r.Float64()*0.28, 3),
			TSSScore: round(0.5+r.Float64()*0.4, 3),
			Kappa:    round(0.4+r.Float64()*0.5, 3),
		},
		TopSpecies:             top,
		EnvironmentalVariables: vars,
	}
}
