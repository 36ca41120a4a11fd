package cost

import (
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/llm"
)

// Charge is the cost of one remote call in both currencies.
type Charge struct {
	USD float64
	THB float64
}

// Totals is a snapshot of everything recorded since the last Reset.
type Totals struct {
	APICalls     int64
	InputTokens  int64
	OutputTokens int64
	USD          float64
	THB          float64
}

// Sub returns t - o, used for per-batch deltas over session totals.
func (t Totals) Sub(o Totals) Totals {
	return Totals{
		APICalls:     t.APICalls - o.APICalls,
		InputTokens:  t.InputTokens - o.InputTokens,
		OutputTokens: t.OutputTokens - o.OutputTokens,
		USD:          t.USD - o.USD,
		THB:          t.THB - o.THB,
	}
}

// Accountant converts usage into money and accumulates session totals. Safe for
// concurrent use.
type Accountant struct {
	mu     sync.Mutex
	totals Totals
	logger *slog.Logger
}

func NewAccountant(logger *slog.Logger) *Accountant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Accountant{logger: logger}
}

// Price computes the charge for usage without recording it. Unknown models cost zero.
func Price(usage llm.UsageRecord) (Charge, bool) {
	p, ok := constants.PricingFor(usage.Model)
	if !ok {
		return Charge{}, false
	}
	usd := float64(usage.InputTokens)/1_000_000*p.Input + float64(usage.OutputTokens)/1_000_000*p.Output
	return Charge{USD: usd, THB: usd * constants.USDToTHB}, true
}

// Record adds usage to the totals and returns its charge.
func (a *Accountant) Record(usage llm.UsageRecord) Charge {
	charge, known := Price(usage)
	if !known {
		a.logger.Warn("cost.unknown_model",
			"model", usage.Model,
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
		)
	}

	a.mu.Lock()
	a.totals.APICalls++
	a.totals.InputTokens += usage.InputTokens
	a.totals.OutputTokens += usage.OutputTokens
	a.totals.USD += charge.USD
	a.totals.THB += charge.THB
	a.mu.Unlock()

	return charge
}

func (a *Accountant) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals
}

func (a *Accountant) Reset() {
	a.mu.Lock()
	a.totals = Totals{}
	a.mu.Unlock()
}
