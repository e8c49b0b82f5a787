// Package netlifytest provides an in-memory fake of the Netlify sites API.
package netlifytest

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alvesdmateus/publify/internal/netlify"
)

// Token is the bearer token the fake accepts
const Token = "test-token"

// Request is a request received by the fake
type Request struct {
	Method string
	Path   string
	Body   []byte
}

// Upload is a zip archive received by POST /sites
type Upload struct {
	SiteID string
	Files  map[string][]byte
}

// Server is a fake Netlify API backed by httptest
type Server struct {
	srv *httptest.Server

	mu       sync.Mutex
	sites    map[string]netlify.Site
	nextID   int
	requests []Request
	uploads  []Upload
	failures []failure
}

type failure struct {
	method    string
	status    int
	remaining int
}

// NewServer starts a fake API preloaded with sites. It is closed on test cleanup.
func NewServer(t *testing.T, sites ...netlify.Site) *Server {
	t.Helper()

	s := &Server{
		sites: make(map[string]netlify.Site),
	}
	for _, site := range sites {
		s.AddSite(site)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.authenticate)
	r.Use(s.injectFailures)

	r.Route("/api/v1/sites", func(r chi.Router) {
		r.Get("/", s.listSites)
		r.Post("/", s.createSite)
		r.Delete("/{id}", s.deleteSite)
		r.Put("/{id}", s.updateSite)
	})

	s.srv = httptest.NewServer(r)
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the API base URL to configure a client with
func (s *Server) URL() string {
	return s.srv.URL + "/api/v1"
}

// Client returns a client for the fake with rate limiting disabled
func (s *Server) Client(t *testing.T) *netlify.Client {
	t.Helper()
	c, err := netlify.NewClient(netlify.Options{
		BaseURL: s.URL(),
		Token:   Token,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

// AddSite stores a site, filling in an ID and name when missing
func (s *Server) AddSite(site netlify.Site) netlify.Site {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	if site.ID == "" {
		site.ID = fmt.Sprintf("site-%d", s.nextID)
	}
	if site.Name == "" {
		site.Name = site.ID
	}
	if site.DefaultDomain == "" {
		site.DefaultDomain = site.Name + ".netlify.app"
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Date(2024, 1, 1, 0, 0, s.nextID, 0, time.UTC)
	}
	s.sites[site.ID] = site
	return site
}

// Site returns a stored site by ID
func (s *Server) Site(id string) (netlify.Site, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	return site, ok
}

// Sites returns all stored sites ordered by creation time
func (s *Server) Sites() []netlify.Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

// Requests returns every request received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Mutations returns the received requests that were not GETs
func (s *Server) Mutations() []Request {
	var out []Request
	for _, req := range s.Requests() {
		if req.Method != http.MethodGet {
			out = append(out, req)
		}
	}
	return out
}

// Uploads returns the archives received by POST /sites
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

// FailNext makes the next n requests with method fail with status
func (s *Server) FailNext(method string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, status: status, remaining: n})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "401", "message": "Access Denied"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := 0
		for i := range s.failures {
			f := &s.failures[i]
			if f.method != r.Method || f.remaining == 0 {
				continue
			}
			f.remaining--
			status = f.status
			break
		}
		s.mu.Unlock()

		if status != 0 {
			writeJSON(w, status, map[string]string{"message": http.StatusText(status)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 100
	}

	s.mu.Lock()
	sites := s.sortedLocked()
	s.mu.Unlock()

	start := (page - 1) * perPage
	if start > len(sites) {
		start = len(sites)
	}
	end := start + perPage
	if end > len(sites) {
		end = len(sites)
	}
	writeJSON(w, http.StatusOK, sites[start:end])
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/zip" {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"message": "expected a zip body"})
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	files, err := unzip(body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	s.nextID++
	id := fmt.Sprintf("site-%d", s.nextID)
	name := fmt.Sprintf("fake-site-%d", s.nextID)
	site := netlify.Site{
		ID:            id,
		Name:          name,
		URL:           "http://" + name + ".netlify.app",
		SSLURL:        "https://" + name + ".netlify.app",
		AdminURL:      "https://app.netlify.com/sites/" + name,
		DefaultDomain: name + ".netlify.app",
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, s.nextID, 0, time.UTC),
	}
	s.sites[id] = site
	s.uploads = append(s.uploads, Upload{SiteID: id, Files: files})
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, site)
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.sites[id]
	delete(s.sites, id)
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update struct {
		CustomDomain *string `json:"custom_domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.mu.Lock()
	site, ok := s.sites[id]
	if ok {
		site.CustomDomain = update.CustomDomain
		if update.CustomDomain != nil && *update.CustomDomain != "" {
			site.URL = "http://" + *update.CustomDomain
		} else {
			site.URL = "http://" + site.DefaultDomain
		}
		s.sites[id] = site
	}
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (s *Server) sortedLocked() []netlify.Site {
	sites := make([]netlify.Site, 0, len(s.sites))
	for _, site := range s.sites {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool {
		if !sites[i].CreatedAt.Equal(sites[j].CreatedAt) {
			return sites[i].CreatedAt.Before(sites[j].CreatedAt)
		}
		return sites[i].ID < sites[j].ID
	})
	return sites
}

func unzip(body []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("read zip: %w", err)
	}
	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		files[f.Name] = data
	}
	return files, nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
