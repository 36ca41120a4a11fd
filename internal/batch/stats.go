package batch

import (
	"sync"

	"github.com/joseph-ayodele/workorder-sorter/constants"
	"github.com/joseph-ayodele/workorder-sorter/internal/cost"
	"github.com/joseph-ayodele/workorder-sorter/internal/entity"
)

// SessionStats accumulates across runs until ResetStats.
type SessionStats struct {
	FilesProcessed  int64
	SuccessfulFiles int64
	FailedFiles     int64
	SkippedFiles    int64
	DegradedFiles   int64
	APICalls        int64
	InputTokens     int64
	OutputTokens    int64
	CostUSD         float64
	CostTHB         float64
}

// sessionStats holds the file counters; token and cost totals live in the accountant.
type sessionStats struct {
	mu sync.Mutex
	s  SessionStats
}

func (st *sessionStats) add(o entity.FileOutcome) {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch {
	case o.Status == constants.FileSkipped:
		st.s.SkippedFiles++
		return
	case o.Success:
		st.s.SuccessfulFiles++
	default:
		st.s.FailedFiles++
	}
	st.s.FilesProcessed++
	if o.ExtractionError != "" {
		st.s.DegradedFiles++
	}
}

func (st *sessionStats) snapshot(t cost.Totals) SessionStats {
	st.mu.Lock()
	s := st.s
	st.mu.Unlock()
	s.APICalls = t.APICalls
	s.InputTokens = t.InputTokens
	s.OutputTokens = t.OutputTokens
	s.CostUSD = t.USD
	s.CostTHB = t.THB
	return s
}

func (st *sessionStats) reset() {
	st.mu.Lock()
	st.s = SessionStats{}
	st.mu.Unlock()
}
