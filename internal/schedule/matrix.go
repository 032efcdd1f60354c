package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vova111/skyrga/internal/storage"
	"golang.org/x/sync/errgroup"
)

// Days is the fixed length of the matrix window
const Days = 730

// Empty marks a profile that registered nothing on a day
const Empty int64 = 0

// chunkDays is how many rows one worker fills
const chunkDays = 73

const dateLayout = "2006-01-02"

// ErrInvalidStartDate is returned for a start date that is not YYYY-MM-DD
var ErrInvalidStartDate = errors.New("invalid start date")

// Day is one row of the matrix
type Day struct {
	Date string
	// Profiles has one cell per profile in id order, the profile id or Empty
	Profiles []int64
}

// Matrix is the registration grid starting at Start
type Matrix struct {
	Start    time.Time
	Profiles []int64
	Days     []Day
}

// AsMap returns the grid keyed by ISO date
func (m Matrix) AsMap() map[string][]int64 {
	out := make(map[string][]int64, len(m.Days))
	for _, d := range m.Days {
		out[d.Date] = d.Profiles
	}
	return out
}

// ParseStart parses a YYYY-MM-DD start date
func ParseStart(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidStartDate)
	}
	return t, nil
}

// Build lays out Days rows from start, one column per profile in the given order.
// Registrations outside the window are ignored. Rows are filled in parallel;
// a cancelled ctx stops the remaining workers and its error is returned.
func Build(ctx context.Context, start time.Time, profiles []int64, registrations []storage.Registration) (Matrix, error) {
	registered := make(map[string]map[int64]bool)
	for _, r := range registrations {
		set, ok := registered[r.RegisterDate]
		if !ok {
			set = make(map[int64]bool)
			registered[r.RegisterDate] = set
		}
		set[r.ProfileID] = true
	}

	m := Matrix{Start: start, Profiles: profiles, Days: make([]Day, Days)}

	// Each worker owns a disjoint range of rows
	g, gCtx := errgroup.WithContext(ctx)
	for from := 0; from < Days; from += chunkDays {
		to := min(from+chunkDays, Days)
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			for i := from; i < to; i++ {
				date := start.AddDate(0, 0, i).Format(dateLayout)
				set := registered[date]
				row := make([]int64, len(profiles))
				for j, id := range profiles {
					if set[id] {
						row[j] = id
					}
				}
				m.Days[i] = Day{Date: date, Profiles: row}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Matrix{}, fmt.Errorf("failed to build matrix: %w", err)
	}

	return m, nil
}

// Store is the persistence contract of the matrix service
type Store interface {
	ListProfileIDs(ctx context.Context) ([]int64, error)
	ListRegistrations(ctx context.Context, since string) ([]storage.Registration, error)
}

// Service builds matrices from stored profiles and registrations
type Service struct {
	store Store
}

// NewService creates a matrix service over store
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Matrix builds the grid for the window starting at start (YYYY-MM-DD)
func (s *Service) Matrix(ctx context.Context, start string) (Matrix, error) {
	from, err := ParseStart(start)
	if err != nil {
		return Matrix{}, err
	}

	profiles, err := s.store.ListProfileIDs(ctx)
	if err != nil {
		return Matrix{}, err
	}
	registrations, err := s.store.ListRegistrations(ctx, from.Format(dateLayout))
	if err != nil {
		return Matrix{}, err
	}

	logrus.Debugf("Building matrix from %s: profiles=%d registrations=%d", start, len(profiles), len(registrations))
	return Build(ctx, from, profiles, registrations)
}
