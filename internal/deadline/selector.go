package deadline

import (
	"fmt"
	"regexp"
	"time"
)

// Select returns the first commit strictly older than deadline. Commits are
// expected newest-first and are not re-sorted. The boolean is false when no
// commit qualifies.
func Select(commits []Commit, deadline time.Time) (Commit, bool) {
	return SelectMatching(commits, deadline, nil)
}

// SelectMatching is Select restricted to commits accepted by filter.
// A nil filter accepts everything.
func SelectMatching(commits []Commit, deadline time.Time, filter Filter) (Commit, bool) {
	for _, c := range commits {
		if !c.Timestamp.Before(deadline) {
			continue
		}
		if filter != nil && !filter(c) {
			continue
		}
		return c, true
	}

	return Commit{}, false
}

// AuthorBlacklist rejects commits whose author email fully matches pattern.
// An empty pattern returns a nil filter.
func AuthorBlacklist(pattern string) (Filter, error) {
	if pattern == "" {
		return nil, nil //nolint:nilnil // no filter
	}

	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlacklist, err)
	}

	return func(c Commit) bool {
		return !re.MatchString(c.AuthorEmail)
	}, nil
}
