package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/vova111/skyrga/internal/ingest"
	"github.com/vova111/skyrga/internal/storage"
)

// Tracker holds and manages the metrics of one import run
type Tracker struct {
	mu   sync.Mutex
	data storage.ImportMetrics
}

// NewTracker creates a new metrics tracker for the batch file source
func NewTracker(source string) *Tracker {
	return &Tracker{
		data: storage.ImportMetrics{
			Source:    source,
			StartTime: time.Now(),
		},
	}
}

// ObserveRow counts one processed data row; it satisfies ingest.RowObserver
func (t *Tracker) ObserveRow(res ingest.RowResult, domainCreated bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.RowsRead++
	switch res.Outcome {
	case ingest.OutcomeImported:
		if res.Eligible {
			t.data.Accepted++
		} else {
			t.data.Duplicate++
		}
	case ingest.OutcomeSkipped:
		t.data.Skipped++
	case ingest.OutcomeFailed:
		t.data.Failed++
	}
	if domainCreated {
		t.data.DomainsCreated++
	}
}

// SetBatchID attaches the batch id once the import has produced one
func (t *Tracker) SetBatchID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.BatchID = id
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() storage.ImportMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.DurationMs = time.Since(t.data.StartTime).Milliseconds()
	return snapshot
}

// WriteToFile finalizes the run and appends it as one JSON line to path
func (t *Tracker) WriteToFile(path, outcome string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.DurationMs = t.data.EndTime.Sub(t.data.StartTime).Milliseconds()
	t.data.Outcome = outcome

	jsonData, err := json.Marshal(t.data)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(jsonData, '\n')); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// LogProgress formats the current counters for the console
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Rows: %d read | Hrefs: %d accepted, %d duplicate | %d skipped, %d failed | Domains: %d new",
		t.data.RowsRead,
		t.data.Accepted,
		t.data.Duplicate,
		t.data.Skipped,
		t.data.Failed,
		t.data.DomainsCreated,
	)
}
