package git

// CloneRequest represents the request to clone or refresh a repository.
type CloneRequest struct {
	URL       string // Git repository URL
	Branch    string // Branch to check out after clone (optional)
	Directory string // Local directory
}
