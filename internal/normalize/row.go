// Package normalize turns one positional record of a backlink report into a
// typed, length-bounded row.
package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Columns is the schema width every batch must declare in its first record
const Columns = 22

// MaxFieldLength is the storage width of url, title, link url and anchor
const MaxFieldLength = 191

// Field positions of interest (0-indexed)
const (
	colRating        = 2
	colURL           = 5
	colPageTitle     = 6
	colExternalLinks = 8
	colLinkURL       = 9
	colAnchor        = 11
	colType          = 13
)

// ErrColumnCount is returned when the first record is not Columns wide
var ErrColumnCount = errors.New("the number of columns does not match the expected schema")

// Skip reasons
const (
	ReasonRatingMissing     = "rating_missing"
	ReasonRatingNotPositive = "rating_not_positive"
)

// SkipError marks a row that is dropped without being written
type SkipError struct {
	Reason string
	Detail string
}

func (e *SkipError) Error() string {
	if e.Detail == "" {
		return "row skipped: " + e.Reason
	}
	return fmt.Sprintf("row skipped: %s (%s)", e.Reason, e.Detail)
}

// IsSkip reports whether err is a SkipError
func IsSkip(err error) bool {
	var se *SkipError
	return errors.As(err, &se)
}

// Row is one accepted record ready for domain resolution
type Row struct {
	Rating             int
	SourceURL          string // full page url, keyed by the domain registry
	URL                string // path + query of SourceURL
	PageTitle          string
	LinkURL            string
	ExternalLinksCount int
	Anchor             string
	TypeLabel          string
}

// CheckHeader validates the width of the first record of a batch
func CheckHeader(record []string) error {
	if len(record) != Columns {
		return fmt.Errorf("%w: expected %d, got %d", ErrColumnCount, Columns, len(record))
	}
	return nil
}

// ParseRow extracts the fields of interest from a data record.
// Rows with a missing, zero, negative or non-numeric rating return a *SkipError.
func ParseRow(record []string) (Row, error) {
	ratingField := field(record, colRating)
	if ratingField == "" {
		return Row{}, &SkipError{Reason: ReasonRatingMissing}
	}

	rating := LeadingInt(ratingField)
	if rating <= 0 {
		return Row{}, &SkipError{Reason: ReasonRatingNotPositive, Detail: ratingField}
	}

	sourceURL := field(record, colURL)

	return Row{
		Rating:             rating,
		SourceURL:          sourceURL,
		URL:                Truncate(pathWithQuery(sourceURL), MaxFieldLength),
		PageTitle:          Truncate(field(record, colPageTitle), MaxFieldLength),
		LinkURL:            Truncate(field(record, colLinkURL), MaxFieldLength),
		ExternalLinksCount: LeadingInt(field(record, colExternalLinks)),
		Anchor:             Truncate(field(record, colAnchor), MaxFieldLength),
		TypeLabel:          field(record, colType),
	}, nil
}

// LeadingInt parses the integer prefix of s the way loosely typed report
// values are read: "45" -> 45, "45.7" -> 45, " 12 links" -> 12, "abc" -> 0.
func LeadingInt(s string) int {
	s = strings.TrimSpace(s)

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		// Out of range for int
		return 0
	}
	return n
}

// Truncate cuts s to at most max characters without splitting a multi-byte rune
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// pathWithQuery returns the raw path plus "?query" of a url, dropping any fragment.
// The text is split by hand so malformed escapes such as "100%-free" are kept as written.
// Example: "https://blog.com/a%zz?x=1#top" -> "/a%zz?x=1"
func pathWithQuery(rawURL string) string {
	s, _, _ := strings.Cut(strings.TrimSpace(rawURL), "#")

	// A bare path has no authority to strip
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		return s
	}

	if _, rest, ok := strings.Cut(s, "://"); ok {
		s = rest
	} else {
		s = strings.TrimPrefix(s, "//")
	}

	if i := strings.IndexAny(s, "/?"); i >= 0 {
		return s[i:]
	}
	return ""
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
