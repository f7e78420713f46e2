package deadline

import "time"

// Commit is a single entry of a repository history listing.
type Commit struct {
	ID          string
	ShortID     string
	Title       string
	AuthorEmail string
	Timestamp   time.Time
}

// Filter accepts or rejects a commit during selection.
type Filter func(Commit) bool
