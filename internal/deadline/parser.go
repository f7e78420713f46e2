package deadline

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	naturaldate "github.com/tj/go-naturaldate"
)

// Parse turns a user supplied deadline into an instant. Absolute dates
// without an offset are taken as UTC, relative expressions ("yesterday",
// "3 days ago") are resolved against now.
func Parse(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "now") {
		return now, nil
	}

	if t, err := dateparse.ParseIn(value, time.UTC); err == nil {
		return t, nil
	}

	ref := now.UTC()
	t, err := naturaldate.Parse(value, ref, naturaldate.WithDirection(naturaldate.Past))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrInvalidDeadline, value, err)
	}

	// Unknown words are accepted by the grammar and leave the reference
	// time untouched.
	if t.Equal(ref) && !strings.EqualFold(value, "today") {
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrInvalidDeadline, value)
	}

	return t, nil
}
