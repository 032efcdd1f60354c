package ingest

// Outcome of one data row
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// ReasonDomainMissing marks rows whose page url has no host
const ReasonDomainMissing = "domain_missing"

// RowResult records what happened to one data row
type RowResult struct {
	Line     int     `json:"line"` // 1-based line in the source, header is line 1
	Outcome  Outcome `json:"outcome"`
	Domain   string  `json:"domain,omitempty"`
	Eligible bool    `json:"eligible,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

// Summary is the result of one import batch
type Summary struct {
	BatchID        string      `json:"batch_id"`
	DryRun         bool        `json:"dry_run"`
	Accepted       int         `json:"accepted"`  // rows that became their domain's eligible href
	Duplicate      int         `json:"duplicate"` // rows whose domain was already in use
	Skipped        int         `json:"skipped"`
	Failed         int         `json:"failed"`
	DomainsCreated int         `json:"domains_created"`
	RatingsChanged int         `json:"ratings_changed"`
	Rows           []RowResult `json:"rows"`
}

func (s *Summary) add(res RowResult) {
	switch res.Outcome {
	case OutcomeImported:
		if res.Eligible {
			s.Accepted++
		} else {
			s.Duplicate++
		}
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
	s.Rows = append(s.Rows, res)
}

// Problems returns the rows that were skipped or failed
func (s *Summary) Problems() []RowResult {
	var out []RowResult
	for _, r := range s.Rows {
		if r.Outcome != OutcomeImported {
			out = append(out, r)
		}
	}
	return out
}
