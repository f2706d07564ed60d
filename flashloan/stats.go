package flashloan

import (
	"sync"

	"github.com/axiomhq/hyperloglog"
)

// Stats summarises the submissions that reached the executor.
type Stats struct {
	Submitted         int64  `json:"submitted"`
	DistinctSenders   uint64 `json:"distinct_senders"`
	DistinctReceivers uint64 `json:"distinct_receivers"`
}

// tracker estimates distinct senders and receivers without keeping the
// addresses around.
type tracker struct {
	mu        sync.Mutex
	submitted int64
	senders   *hyperloglog.Sketch
	receivers *hyperloglog.Sketch
}

func newTracker() *tracker {
	return &tracker{
		senders:   hyperloglog.New14(),
		receivers: hyperloglog.New14(),
	}
}

func (t *tracker) record(req LoanRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.submitted++
	t.senders.Insert([]byte(req.Sender))
	t.receivers.Insert([]byte(req.Receiver))
}

func (t *tracker) stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Submitted:         t.submitted,
		DistinctSenders:   t.senders.Estimate(),
		DistinctReceivers: t.receivers.Estimate(),
	}
}
