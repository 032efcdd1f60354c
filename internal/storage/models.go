package storage

import "time"

// Status ids seeded into hrefs_statuses
const (
	StatusPending    int64 = 1
	StatusSuccessful int64 = 2
)

// ReservedStatusThreshold is the highest status id that reviewers cannot pick.
// Ids above it are selectable terminal outcomes, Successful included: reviewers
// record acceptance through the same transition as the failure reasons.
const ReservedStatusThreshold int64 = 1

// Domain is a canonical registry entry for a host that carries backlinks
type Domain struct {
	ID           int64
	Domain       string
	Scheme       string
	Rating       int
	RootDomainID *int64
	CreatedAt    time.Time
}

// Site is the campaign site that received the backlinks
type Site struct {
	ID        int64
	DomainID  int64
	CityID    *int64
	TypeID    *int64
	CreatedAt time.Time
}

// Href is one recorded backlink placement
type Href struct {
	ID                 int64
	BatchID            string
	DomainID           int64
	SiteID             int64
	URL                string
	PageTitle          string
	LinkURL            string
	LinkAnchor         string
	ExternalLinksCount int
	Rating             int
	StatusID           int64
	TypeID             int64
	IsAnalized         bool
	AnalizedDate       string // YYYY-MM-DD, empty until the first review
	Comment            string
	UserID             *int64
	CreatedAt          time.Time

	// Joined for listings, not stored on the row
	DomainName string
	Scheme     string
}

// HrefsStatus is one workflow state of the reference table
type HrefsStatus struct {
	ID   int64
	Name string
}

// HrefsType is a link type label taken from the report
type HrefsType struct {
	ID   int64
	Name string
}

// Profile is a registered automation identity
type Profile struct {
	ID   int64
	Name string
}

// Registration is a target registration event of a profile on a date
type Registration struct {
	ProfileID    int64
	RegisterDate string // YYYY-MM-DD
}

// ReviewFilter selects analysed hrefs for the successful/failed listings
type ReviewFilter struct {
	Successful bool
	Domain     string // substring match on the domain name
	Date       string // exact analysis date
	Limit      int
	Offset     int
}

// ImportMetrics tracks import statistics for export after a run
type ImportMetrics struct {
	BatchID        string    `json:"batch_id"`
	Source         string    `json:"source"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	RowsRead       int       `json:"rows_read"`
	Accepted       int       `json:"accepted"`
	Duplicate      int       `json:"duplicate"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	DomainsCreated int       `json:"domains_created"`
	DurationMs     int64     `json:"duration_ms"`
	Outcome        string    `json:"outcome"`
}
