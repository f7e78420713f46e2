package git

// Repository represents a local working copy.
type Repository struct {
	Path    string // Path to the working copy
	URL     string // Remote URL
	Fetched bool   // Existing copy was fetched instead of cloned
}
