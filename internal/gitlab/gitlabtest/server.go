// Package gitlabtest provides an in-memory GitLab REST API for tests.
package gitlabtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const apiPrefix = "/api/v4/"

type Commit struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	AuthorEmail string    `yaml:"author_email"`
	Date        time.Time `yaml:"date"`
	Parents     []string  `yaml:"parents"`
	Additions   int       `yaml:"additions"`
	Deletions   int       `yaml:"deletions"`
}

type Job struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name"`
	Status string `yaml:"status"`
}

// Pipeline entries are listed newest first.
type Pipeline struct {
	ID     int    `yaml:"id"`
	Status string `yaml:"status"`
	SHA    string `yaml:"sha"`
	Jobs   []Job  `yaml:"jobs"`
}

type Protection struct {
	Push  int `yaml:"push"`
	Merge int `yaml:"merge"`
}

type Project struct {
	ID            int                   `yaml:"-"`
	Path          string                `yaml:"path"`
	DefaultBranch string                `yaml:"default_branch"`
	Visibility    string                `yaml:"visibility"`
	ForkedFrom    string                `yaml:"forked_from"`
	Protected     map[string]Protection `yaml:"protected"`
	Members       map[int]int           `yaml:"members"`
	Commits       []Commit              `yaml:"commits"` // newest first
	Tags          map[string]string     `yaml:"tags"`    // name -> commit id
	ProtectedTags map[string]int        `yaml:"protected_tags"`
	Files         map[string]string     `yaml:"files"` // content at every ref
	Pipelines     []Pipeline            `yaml:"pipelines"`
	// ImportPolls is how many GETs a fresh fork reports as still importing.
	ImportPolls int `yaml:"-"`
}

type User struct {
	ID       int    `yaml:"id"`
	Username string `yaml:"username"`
}

// Seed is the initial state of a Server.
type Seed struct {
	Projects []Project `yaml:"projects"`
	Users    []User    `yaml:"users"`
}

// Server is a fake GitLab instance backed by an httptest.Server.
type Server struct {
	*httptest.Server

	// ForkImportPolls is copied into every fork created through the API.
	ForkImportPolls int

	mu       sync.Mutex
	nextID   int
	projects map[int]*Project
	users    []User
	requests []string
}

// NewServer starts a fake instance with the given state.
func NewServer(seed Seed) *Server {
	s := &Server{
		nextID:   1,
		projects: map[int]*Project{},
		users:    slices.Clone(seed.Users),
	}
	for _, p := range seed.Projects {
		s.AddProject(p)
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))

	return s
}

// LoadSeed reads a YAML state description.
func LoadSeed(path string) (Seed, error) {
	var seed Seed

	data, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}

	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("parse %s: %w", path, err)
	}

	return seed, nil
}

// AddProject registers a project and returns its ID.
func (s *Server) AddProject(p Project) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	if p.DefaultBranch == "" {
		p.DefaultBranch = "main"
	}
	if p.Visibility == "" {
		p.Visibility = "internal"
	}
	if p.Protected == nil {
		p.Protected = map[string]Protection{}
	}
	if p.Members == nil {
		p.Members = map[int]int{}
	}
	if p.Tags == nil {
		p.Tags = map[string]string{}
	}
	if p.ProtectedTags == nil {
		p.ProtectedTags = map[string]int{}
	}
	if p.Files == nil {
		p.Files = map[string]string{}
	}

	s.projects[p.ID] = &p

	return p.ID
}

// Project returns a copy of the project stored under path.
func (s *Server) Project(path string) (Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.byPath(path)
	if p == nil {
		return Project{}, false
	}

	clone := *p
	clone.Files = maps.Clone(p.Files)
	clone.Commits = slices.Clone(p.Commits)

	return clone, true
}

// Requests lists the mutating requests served so far as "METHOD path".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.requests)
}

func (s *Server) byPath(path string) *Project {
	for _, p := range s.projects {
		if p.Path == path {
			return p
		}
	}
	return nil
}

func (s *Server) lookup(id string) *Project {
	if n, err := strconv.Atoi(id); err == nil {
		return s.projects[n]
	}
	return s.byPath(id)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	escaped := strings.TrimPrefix(r.URL.EscapedPath(), apiPrefix)
	segments := strings.Split(escaped, "/")
	for i, seg := range segments {
		if v, err := url.PathUnescape(seg); err == nil {
			segments[i] = v
		}
	}

	if r.Method != http.MethodGet {
		s.requests = append(s.requests, r.Method+" /"+strings.Join(segments, "/"))
	}

	switch {
	case len(segments) == 1 && segments[0] == "users" && r.Method == http.MethodGet:
		s.listUsers(w, r)
	case len(segments) >= 2 && segments[0] == "projects":
		p := s.lookup(segments[1])
		if p == nil {
			writeError(w, http.StatusNotFound, "404 Project Not Found")
			return
		}
		s.serveProject(w, r, p, segments[2:])
	default:
		writeError(w, http.StatusNotFound, "404 Not Found")
	}
}

func (s *Server) serveProject(w http.ResponseWriter, r *http.Request, p *Project, rest []string) {
	route := r.Method
	if len(rest) > 0 {
		route += " " + rest[0]
	}

	switch route {
	case http.MethodGet:
		s.getProject(w, p)
	case http.MethodPut:
		var body struct {
			Visibility string `json:"visibility"`
		}
		if !decode(w, r, &body) {
			return
		}
		if body.Visibility != "" {
			p.Visibility = body.Visibility
		}
		writeJSON(w, http.StatusOK, projectJSON(p, s.URL))
	case "POST fork":
		s.fork(w, r, p)
	case "DELETE fork":
		if p.ForkedFrom == "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		p.ForkedFrom = ""
		w.WriteHeader(http.StatusNoContent)
	case "GET protected_branches", "DELETE protected_branches", "POST protected_branches":
		s.serveProtected(w, r, p, rest[1:])
	case "GET protected_tags", "DELETE protected_tags", "POST protected_tags":
		s.serveProtectedTags(w, r, p, rest[1:])
	case "GET members", "PUT members", "DELETE members", "POST members":
		s.serveMembers(w, r, p, rest[1:])
	case "GET repository", "POST repository":
		s.serveRepository(w, r, p, rest[1:])
	case "GET pipelines":
		s.servePipelines(w, r, p, rest[1:])
	default:
		writeError(w, http.StatusNotFound, "404 Not Found")
	}
}

func (s *Server) getProject(w http.ResponseWriter, p *Project) {
	if p.ImportPolls > 0 {
		p.ImportPolls--
	}
	writeJSON(w, http.StatusOK, projectJSON(p, s.URL))
}

func (s *Server) fork(w http.ResponseWriter, r *http.Request, source *Project) {
	var body struct {
		Path          string `json:"path"`
		NamespacePath string `json:"namespace_path"`
	}
	if !decode(w, r, &body) {
		return
	}

	target := body.Path
	if body.NamespacePath != "" {
		target = body.NamespacePath + "/" + body.Path
	}

	if s.byPath(target) != nil {
		writeError(w, http.StatusConflict, "Project namespace name has already been taken")
		return
	}

	fork := &Project{
		ID:            s.nextID,
		Path:          target,
		DefaultBranch: source.DefaultBranch,
		Visibility:    source.Visibility,
		ForkedFrom:    source.Path,
		Protected:     map[string]Protection{},
		Members:       map[int]int{},
		Commits:       slices.Clone(source.Commits),
		Tags:          maps.Clone(source.Tags),
		ProtectedTags: map[string]int{},
		Files:         maps.Clone(source.Files),
		ImportPolls:   s.ForkImportPolls,
	}
	for branch, level := range source.Protected {
		fork.Protected[branch] = level
	}
	s.nextID++
	s.projects[fork.ID] = fork

	writeJSON(w, http.StatusCreated, projectJSON(fork, s.URL))
}

func (s *Server) serveProtected(w http.ResponseWriter, r *http.Request, p *Project, rest []string) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Name             string `json:"name"`
			PushAccessLevel  int    `json:"push_access_level"`
			MergeAccessLevel int    `json:"merge_access_level"`
		}
		if !decode(w, r, &body) {
			return
		}
		if _, ok := p.Protected[body.Name]; ok {
			writeError(w, http.StatusConflict, "Protected branch '"+body.Name+"' already exists")
			return
		}
		p.Protected[body.Name] = Protection{Push: body.PushAccessLevel, Merge: body.MergeAccessLevel}
		writeJSON(w, http.StatusCreated, protectedJSON(body.Name, p.Protected[body.Name]))
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "404 Not Found")
		return
	}

	branch := rest[0]
	level, ok := p.Protected[branch]
	if !ok {
		writeError(w, http.StatusNotFound, "404 Not found")
		return
	}

	if r.Method == http.MethodDelete {
		delete(p.Protected, branch)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, protectedJSON(branch, level))
}

func (s *Server) serveMembers(w http.ResponseWriter, r *http.Request, p *Project, rest []string) {
	if r.Method == http.MethodGet && (len(rest) == 0 || (len(rest) == 1 && rest[0] == "all")) {
		s.listMembers(w, r, p)
		return
	}

	if r.Method == http.MethodPost {
		var body struct {
			UserID      int `json:"user_id"`
			AccessLevel int `json:"access_level"`
		}
		if !decode(w, r, &body) {
			return
		}
		if _, ok := p.Members[body.UserID]; ok {
			writeError(w, http.StatusConflict, "Member already exists")
			return
		}
		p.Members[body.UserID] = body.AccessLevel
		writeJSON(w, http.StatusCreated, map[string]any{"id": body.UserID, "access_level": body.AccessLevel})
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "404 Not Found")
		return
	}

	uid, err := strconv.Atoi(rest[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	level, ok := p.Members[uid]
	if !ok {
		writeError(w, http.StatusNotFound, "404 Member Not Found")
		return
	}

	switch r.Method {
	case http.MethodDelete:
		delete(p.Members, uid)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodPut:
		var body struct {
			AccessLevel int `json:"access_level"`
		}
		if !decode(w, r, &body) {
			return
		}
		p.Members[uid] = body.AccessLevel
		writeJSON(w, http.StatusOK, map[string]any{"id": uid, "access_level": body.AccessLevel})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"id": uid, "access_level": level})
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	users := []map[string]any{}
	for _, u := range s.users {
		if username == "" || strings.EqualFold(u.Username, username) {
			users = append(users, map[string]any{"id": u.ID, "username": u.Username, "name": u.Username})
		}
	}

	writeJSON(w, http.StatusOK, users)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request, p *Project) {
	var members []map[string]any
	for _, u := range s.users {
		if level, ok := p.Members[u.ID]; ok {
			members = append(members, map[string]any{
				"id":           u.ID,
				"username":     u.Username,
				"name":         u.Username,
				"access_level": level,
			})
		}
	}

	writePage(w, r, members)
}

func (s *Server) listCommits(w http.ResponseWriter, r *http.Request, p *Project) {
	q := r.URL.Query()

	if ref := q.Get("ref_name"); ref != "" && ref != p.DefaultBranch {
		writeError(w, http.StatusNotFound, "404 Branch Not Found")
		return
	}

	var until time.Time
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until")
			return
		}
		until = t
	}

	var commits []map[string]any
	for _, c := range p.Commits {
		if !until.IsZero() && c.Date.After(until) {
			continue
		}
		commits = append(commits, commitJSON(c))
	}

	writePage(w, r, commits)
}

func (s *Server) serveRepository(w http.ResponseWriter, r *http.Request, p *Project, rest []string) {
	route := r.Method + " " + strings.Join(rest, "/")

	switch {
	case route == "GET commits":
		s.listCommits(w, r, p)
	case route == "POST commits":
		s.createCommit(w, r, p)
	case route == "POST tags":
		s.createTag(w, r, p)
	case r.Method == http.MethodGet && len(rest) == 2 && rest[0] == "commits":
		c, ok := findCommit(p, rest[1])
		if !ok {
			writeError(w, http.StatusNotFound, "404 Commit Not Found")
			return
		}
		data := commitJSON(c)
		data["stats"] = map[string]any{
			"additions": c.Additions,
			"deletions": c.Deletions,
			"total":     c.Additions + c.Deletions,
		}
		writeJSON(w, http.StatusOK, data)
	case r.Method == http.MethodGet && len(rest) == 2 && rest[0] == "tags":
		id, ok := p.Tags[rest[1]]
		if !ok {
			writeError(w, http.StatusNotFound, "404 Tag Not Found")
			return
		}
		c, _ := findCommit(p, id)
		writeJSON(w, http.StatusOK, map[string]any{"name": rest[1], "commit": commitJSON(c)})
	case r.Method == http.MethodGet && len(rest) == 3 && rest[0] == "files" && rest[2] == "raw":
		if _, ok := resolveRef(p, r.URL.Query().Get("ref")); !ok {
			writeError(w, http.StatusNotFound, "404 Commit Not Found")
			return
		}
		content, ok := p.Files[rest[1]]
		if !ok {
			writeError(w, http.StatusNotFound, "404 File Not Found")
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, content)
	default:
		writeError(w, http.StatusNotFound, "404 Not Found")
	}
}

func (s *Server) createCommit(w http.ResponseWriter, r *http.Request, p *Project) {
	var body struct {
		Branch        string `json:"branch"`
		CommitMessage string `json:"commit_message"`
		Actions       []struct {
			Action   string `json:"action"`
			FilePath string `json:"file_path"`
			Content  string `json:"content"`
		} `json:"actions"`
	}
	if !decode(w, r, &body) {
		return
	}

	if body.Branch != p.DefaultBranch {
		writeError(w, http.StatusBadRequest, "You can only create or edit files when you are on a branch")
		return
	}

	for _, a := range body.Actions {
		_, exists := p.Files[a.FilePath]
		switch {
		case a.Action == "create" && exists:
			writeError(w, http.StatusBadRequest, "A file with this name already exists")
			return
		case a.Action == "update" && !exists:
			writeError(w, http.StatusBadRequest, "A file with this name doesn't exist")
			return
		}
	}

	for _, a := range body.Actions {
		p.Files[a.FilePath] = a.Content
	}

	c := Commit{
		ID:    fmt.Sprintf("%s-commit-%d", strings.ReplaceAll(p.Path, "/", "-"), len(p.Commits)+1),
		Title: strings.SplitN(body.CommitMessage, "\n", 2)[0],
		Date:  time.Now().UTC(),
	}
	if len(p.Commits) > 0 {
		c.Parents = []string{p.Commits[0].ID}
	}
	p.Commits = append([]Commit{c}, p.Commits...)

	writeJSON(w, http.StatusCreated, commitJSON(c))
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request, p *Project) {
	var body struct {
		TagName string `json:"tag_name"`
		Ref     string `json:"ref"`
		Message string `json:"message"`
	}
	if !decode(w, r, &body) {
		return
	}

	if _, ok := p.Tags[body.TagName]; ok {
		writeError(w, http.StatusBadRequest, "Tag "+body.TagName+" already exists")
		return
	}

	c, ok := resolveRef(p, body.Ref)
	if !ok {
		writeError(w, http.StatusBadRequest, "Target "+body.Ref+" is invalid")
		return
	}

	p.Tags[body.TagName] = c.ID
	writeJSON(w, http.StatusCreated, map[string]any{"name": body.TagName, "message": body.Message, "commit": commitJSON(c)})
}

func (s *Server) serveProtectedTags(w http.ResponseWriter, r *http.Request, p *Project, rest []string) {
	if r.Method == http.MethodPost {
		var body struct {
			Name              string `json:"name"`
			CreateAccessLevel int    `json:"create_access_level"`
		}
		if !decode(w, r, &body) {
			return
		}
		if _, ok := p.ProtectedTags[body.Name]; ok {
			writeError(w, http.StatusConflict, "Protected tag '"+body.Name+"' already exists")
			return
		}
		p.ProtectedTags[body.Name] = body.CreateAccessLevel
		writeJSON(w, http.StatusCreated, protectedTagJSON(body.Name, body.CreateAccessLevel))
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "404 Not Found")
		return
	}

	level, ok := p.ProtectedTags[rest[0]]
	if !ok {
		writeError(w, http.StatusNotFound, "404 Not found")
		return
	}

	if r.Method == http.MethodDelete {
		delete(p.ProtectedTags, rest[0])
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, protectedTagJSON(rest[0], level))
}

func (s *Server) servePipelines(w http.ResponseWriter, r *http.Request, p *Project, rest []string) {
	if len(rest) == 0 {
		var pipelines []map[string]any
		for _, pl := range p.Pipelines {
			pipelines = append(pipelines, map[string]any{"id": pl.ID, "status": pl.Status, "sha": pl.SHA})
		}
		writePage(w, r, pipelines)
		return
	}

	if len(rest) == 2 && rest[1] == "jobs" {
		id, _ := strconv.Atoi(rest[0])
		for _, pl := range p.Pipelines {
			if pl.ID != id {
				continue
			}
			var jobs []map[string]any
			for _, j := range pl.Jobs {
				jobs = append(jobs, map[string]any{"id": j.ID, "name": j.Name, "status": j.Status})
			}
			writePage(w, r, jobs)
			return
		}
	}

	writeError(w, http.StatusNotFound, "404 Not Found")
}

// resolveRef maps the default branch, a tag or a commit id to a commit.
func resolveRef(p *Project, ref string) (Commit, bool) {
	if ref == "" || ref == p.DefaultBranch {
		if len(p.Commits) == 0 {
			return Commit{}, false
		}
		return p.Commits[0], true
	}
	if id, ok := p.Tags[ref]; ok {
		ref = id
	}
	return findCommit(p, ref)
}

func findCommit(p *Project, id string) (Commit, bool) {
	for _, c := range p.Commits {
		if c.ID == id {
			return c, true
		}
	}
	return Commit{}, false
}

// writePage serves one page of items, honouring page and per_page.
func writePage(w http.ResponseWriter, r *http.Request, items []map[string]any) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	start := min((page-1)*perPage, len(items))
	end := min(start+perPage, len(items))
	if end < len(items) {
		w.Header().Set("X-Next-Page", strconv.Itoa(page+1))
	}

	writeJSON(w, http.StatusOK, append([]map[string]any{}, items[start:end]...))
}

func commitJSON(c Commit) map[string]any {
	short := c.ID
	if len(short) > 8 {
		short = short[:8]
	}

	date := c.Date.Format(time.RFC3339)

	return map[string]any{
		"id":             c.ID,
		"short_id":       short,
		"title":          c.Title,
		"author_email":   c.AuthorEmail,
		"authored_date":  date,
		"committed_date": date,
		"created_at":     date,
		"parent_ids":     append([]string{}, c.Parents...),
	}
}

func protectedTagJSON(name string, level int) map[string]any {
	return map[string]any{
		"name":                 name,
		"create_access_levels": []map[string]any{{"access_level": level}},
	}
}

func projectJSON(p *Project, base string) map[string]any {
	importStatus := "none"
	if p.ImportPolls > 0 {
		importStatus = "started"
	} else if p.ForkedFrom != "" {
		importStatus = "finished"
	}

	data := map[string]any{
		"id":                  p.ID,
		"path":                p.Path[strings.LastIndex(p.Path, "/")+1:],
		"path_with_namespace": p.Path,
		"default_branch":      p.DefaultBranch,
		"visibility":          p.Visibility,
		"empty_repo":          len(p.Commits) == 0,
		"import_status":       importStatus,
		"http_url_to_repo":    base + "/" + p.Path + ".git",
		"ssh_url_to_repo":     "git@" + strings.TrimPrefix(base, "http://") + ":" + p.Path + ".git",
	}
	if p.ForkedFrom != "" {
		data["forked_from_project"] = map[string]any{"path_with_namespace": p.ForkedFrom}
	}

	return data
}

func protectedJSON(name string, level Protection) map[string]any {
	return map[string]any{
		"name":                name,
		"push_access_levels":  []map[string]any{{"access_level": level.Push}},
		"merge_access_levels": []map[string]any{{"access_level": level.Merge}},
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
