// Package apitest provides an in-process fake of the OneMoreRev backend for tests.
package apitest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/onemorerev/client/pkg/core"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "omr_session"

type account struct {
	user     core.User
	password string
}

// Server is a stateful fake backend. Fields are guarded by the server's lock;
// use the helper methods to seed and inspect state from tests.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]account
	sessions  map[string]string // token -> user id
	projects  map[string]core.Project
	revisions map[string]core.Revision
	shared    map[string]string // access code -> revision id
	files     map[string][]byte
	failures  map[string]int
	requests  []string
	now       func() time.Time
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:  make(map[string]account),
		sessions:  make(map[string]string),
		projects:  make(map[string]core.Project),
		revisions: make(map[string]core.Revision),
		shared:    make(map[string]string),
		files:     make(map[string][]byte),
		failures:  make(map[string]int),
		now:       time.Now,
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.track)

	r.HandleFunc("/session/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/session/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/session/profile", s.authed(s.handleProfile)).Methods(http.MethodGet)

	r.HandleFunc("/project/list", s.authed(s.handleProjectList)).Methods(http.MethodGet)
	r.HandleFunc("/project/shared", s.authed(s.handleProjectList)).Methods(http.MethodGet)
	r.HandleFunc("/project/info", s.authed(s.handleProjectInfo)).Methods(http.MethodGet)
	r.HandleFunc("/project/create", s.authed(s.handleProjectCreate)).Methods(http.MethodPost)
	r.HandleFunc("/project/history", s.authed(s.handleProjectHistory)).Methods(http.MethodGet)

	r.HandleFunc("/revision/info", s.guest(s.handleRevisionInfo)).Methods(http.MethodGet)
	r.HandleFunc("/revision/shared", s.handleRevisionShared).Methods(http.MethodGet)
	r.HandleFunc("/revision/submit", s.authed(s.handleRevisionSubmit)).Methods(http.MethodPost)
	r.HandleFunc("/revision/new", s.authed(s.handleRevisionNew)).Methods(http.MethodPost)
	r.HandleFunc("/revision/review-done", s.guest(s.handleReviewDone)).Methods(http.MethodPost)

	r.HandleFunc("/track/create", s.authed(s.handleTrackCreate)).Methods(http.MethodPost)
	r.HandleFunc("/feedback/create", s.guest(s.handleFeedbackCreate)).Methods(http.MethodPost)
	r.HandleFunc("/file/{filename}", s.handleFile).Methods(http.MethodGet)

	return r
}

// track records the request and applies any forced failure for its path.
func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		status, fail := s.failures[r.URL.Path]
		s.mu.Unlock()
		if fail {
			writeError(w, status, "forced failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddUser registers an account that can log in.
func (s *Server) AddUser(user core.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[user.Email] = account{user: user, password: password}
}

// AddProject seeds a project.
func (s *Server) AddProject(p core.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = p
}

// AddRevision seeds a revision. A non-empty accessCode shares it with guests.
func (s *Server) AddRevision(rev core.Revision, accessCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions[rev.ID] = rev
	if accessCode != "" {
		s.shared[accessCode] = rev.ID
	}
}

// AddFile seeds a downloadable file.
func (s *Server) AddFile(filename string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filename] = data
}

// Fail makes every request to path answer with status until cleared with status 0.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, path)
		return
	}
	s.failures[path] = status
}

// Revision returns the current server copy of a revision.
func (s *Server) Revision(id string) (core.Revision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.revisions[id]
	return rev, ok
}

// Requests returns "METHOD /path" for every request served so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// File returns the stored bytes of a file.
func (s *Server) File(filename string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[filename]
	return data, ok
}

func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); !ok {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		h(w, r)
	}
}

// guest accepts either a session or a valid accessCode query parameter.
func (s *Server) guest(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.sessionUser(r); ok {
			h(w, r)
			return
		}
		code := r.URL.Query().Get("accessCode")
		s.mu.Lock()
		_, ok := s.shared[code]
		s.mu.Unlock()
		if code == "" || !ok {
			writeError(w, http.StatusForbidden, "access denied")
			return
		}
		h(w, r)
	}
}

func (s *Server) sessionUser(r *http.Request) (core.User, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return core.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[c.Value]
	if !ok {
		return core.User{}, false
	}
	for _, a := range s.accounts {
		if a.user.ID == id {
			return a.user, true
		}
	}
	return core.User{}, false
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	s.mu.Lock()
	a, ok := s.accounts[req.Email]
	if !ok || a.password != req.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token := uuid.NewString()
	s.sessions[token] = a.user.ID
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, a.user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, c.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, _ := s.sessionUser(r)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleProjectList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]core.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	s.mu.Unlock()
	sortProjects(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProjectInfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.projects[r.URL.Query().Get("projectId")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req core.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	now := s.now()
	p := core.Project{
		ID:           uuid.NewString(),
		Title:        req.Title,
		Brief:        req.Brief,
		DesignerName: req.DesignerName,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.AddProject(p)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProjectHistory(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	s.mu.Lock()
	_, ok := s.projects[projectID]
	var entries []core.HistoryEntry
	for _, rev := range s.revisions {
		if rev.ProjectID != projectID {
			continue
		}
		for _, tr := range rev.Tracks {
			for _, f := range tr.History {
				entries = append(entries, core.HistoryEntry{
					RevisionID:     rev.ID,
					RevisionNumber: rev.Number,
					TrackID:        tr.ID,
					TrackName:      tr.Name,
					File:           f,
				})
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	sortHistory(entries)
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRevisionInfo(w http.ResponseWriter, r *http.Request) {
	rev, ok := s.Revision(r.URL.Query().Get("revisionId"))
	if !ok {
		writeError(w, http.StatusNotFound, "revision not found")
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleRevisionShared(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	id, ok := s.shared[r.URL.Query().Get("accessCode")]
	rev := s.revisions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusForbidden, "invalid access code")
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleRevisionSubmit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RevisionID string            `json:"revisionId"`
		Files      []core.FileUpload `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.revisions[req.RevisionID]
	if !ok {
		writeError(w, http.StatusNotFound, "revision not found")
		return
	}
	if !rev.Status.CanTransition(core.StatusSubmitted) {
		writeError(w, http.StatusConflict, fmt.Sprintf("revision is %s", rev.Status))
		return
	}
	for _, up := range req.Files {
		data, err := base64.StdEncoding.DecodeString(up.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid file content")
			return
		}
		tr := trackIndex(rev.Tracks, up.TrackID)
		if tr == nil {
			writeError(w, http.StatusBadRequest, "unknown track "+up.TrackID)
			return
		}
		stored := fmt.Sprintf("%s-%s", uuid.NewString()[:8], up.Filename)
		s.files[stored] = data
		file := core.TrackFile{
			Filename:     stored,
			OriginalName: up.Filename,
			ContentType:  up.ContentType,
			Size:         int64(len(data)),
			UploadedAt:   s.now(),
		}
		tr.LatestFile = &file
		tr.History = append(tr.History, file)
	}
	rev.Status = core.StatusSubmitted
	s.revisions[rev.ID] = rev
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleRevisionNew(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID string `json:"projectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[req.ProjectID]; !ok {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	var latest *core.Revision
	for id := range s.revisions {
		rev := s.revisions[id]
		if rev.ProjectID == req.ProjectID && (latest == nil || rev.Number > latest.Number) {
			latest = &rev
		}
	}
	next := core.Revision{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		Number:    1,
		Status:    core.StatusPrepare,
		CreatedAt: s.now(),
	}
	if latest != nil {
		if latest.Status != core.StatusReviewed {
			writeError(w, http.StatusConflict, "latest revision is not reviewed")
			return
		}
		next.Number = latest.Number + 1
		for _, tr := range latest.Tracks {
			next.Tracks = append(next.Tracks, core.Track{ID: tr.ID, RevisionID: next.ID, Name: tr.Name})
		}
	}
	s.revisions[next.ID] = next
	writeJSON(w, http.StatusOK, next)
}

func (s *Server) handleReviewDone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RevisionID string `json:"revisionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.revisions[req.RevisionID]
	if !ok {
		writeError(w, http.StatusNotFound, "revision not found")
		return
	}
	if !rev.Status.CanTransition(core.StatusReviewed) {
		writeError(w, http.StatusConflict, fmt.Sprintf("revision is %s", rev.Status))
		return
	}
	rev.Status = core.StatusReviewed
	s.revisions[rev.ID] = rev
	writeJSON(w, http.StatusOK, rev)
}

func (s *Server) handleTrackCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RevisionID string           `json:"revisionId"`
		Name       string           `json:"name"`
		File       *core.FileUpload `json:"file"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.revisions[req.RevisionID]
	if !ok {
		writeError(w, http.StatusNotFound, "revision not found")
		return
	}
	tr := core.Track{ID: uuid.NewString(), RevisionID: rev.ID, Name: req.Name}
	if req.File != nil {
		data, err := base64.StdEncoding.DecodeString(req.File.Content)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid file content")
			return
		}
		s.files[req.File.Filename] = data
		file := core.TrackFile{
			Filename:     req.File.Filename,
			OriginalName: req.File.Filename,
			ContentType:  req.File.ContentType,
			Size:         int64(len(data)),
			UploadedAt:   s.now(),
		}
		tr.LatestFile = &file
		tr.History = []core.TrackFile{file}
	}
	rev.Tracks = append(rev.Tracks, tr)
	s.revisions[rev.ID] = rev
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleFeedbackCreate(w http.ResponseWriter, r *http.Request) {
	var req core.CreateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.revisions[req.RevisionID]
	if !ok {
		writeError(w, http.StatusNotFound, "revision not found")
		return
	}
	if rev.Status != core.StatusSubmitted {
		writeError(w, http.StatusConflict, "revision is not open for review")
		return
	}
	fb := core.Feedback{
		ID:        uuid.NewString(),
		TrackID:   req.TrackID,
		NormalX:   req.NormalX,
		NormalY:   req.NormalY,
		Content:   req.Content,
		CreatedAt: s.now(),
	}
	rev.Feedbacks = append(rev.Feedbacks, fb)
	s.revisions[rev.ID] = rev
	writeJSON(w, http.StatusOK, fb)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	data, ok := s.File(mux.Vars(r)["filename"])
	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func trackIndex(tracks []core.Track, id string) *core.Track {
	for i := range tracks {
		if tracks[i].ID == id {
			return &tracks[i]
		}
	}
	return nil
}
