// Package fakeapi is an in-memory stand-in for the story-sharing service.
// It speaks the same JSON contract and is meant to be mounted on an
// httptest.Server in tests of the client packages.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/hackorsnooze/internal/logger"
	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
)

type account struct {
	username  string
	password  string
	name      string
	createdAt time.Time
	favorites []string
}

// Server holds the fake service state.
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	stories  []models.StoryPayload
	failNext int
	requests int
}

// New returns an empty fake service.
func New() *Server {
	return &Server{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
	}
}

// Handler returns the routes of the service.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware, gzipResponses, s.countAndInjectFailures)

	router.Post(`/signup`, s.signup)
	router.Post(`/login`, s.login)
	router.Get(`/users/{username}`, s.getUser)
	router.Post(`/users/{username}/favorites/{storyId}`, s.addFavorite)
	router.Delete(`/users/{username}/favorites/{storyId}`, s.removeFavorite)
	router.Get(`/stories`, s.listStories)
	router.Post(`/stories`, s.createStory)
	router.Delete(`/stories/{storyId}`, s.deleteStory)

	return router
}

// SeedUser registers an account and returns a valid token for it.
func (s *Server) SeedUser(username, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[username] = &account{
		username:  username,
		password:  password,
		name:      name,
		createdAt: time.Now().UTC(),
	}

	return s.issueToken(username)
}

// SeedStory publishes a story as username and returns it.
func (s *Server) SeedStory(username, title, author, storyURL string) models.StoryPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.publish(username, models.NewStory{Title: title, Author: author, URL: storyURL})
}

// SeedStoryWithID is SeedStory with a caller-chosen story id.
func (s *Server) SeedStoryWithID(storyID, username, title, author, storyURL string) models.StoryPayload {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.publish(username, models.NewStory{Title: title, Author: author, URL: storyURL})
	created.StoryID = storyID
	s.stories[0] = created

	return created
}

// FavoriteDirectly marks a favorite without going through the HTTP API,
// simulating a change made by another client.
func (s *Server) FavoriteDirectly(username, storyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acc, ok := s.accounts[username]; ok && !contains(acc.favorites, storyID) {
		acc.favorites = append(acc.favorites, storyID)
	}
}

// RevokeToken makes token invalid, as if it had expired.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, token)
}

// FailNext makes the next request fail with the given status.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failNext = status
}

// Requests returns how many requests have been served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests
}

// StoryIDs returns the ids of all stories, newest first.
func (s *Server) StoryIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.stories))
	for _, st := range s.stories {
		ids = append(ids, st.StoryID)
	}

	return ids
}

func (s *Server) countAndInjectFailures(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		status := s.failNext
		s.failNext = 0
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, http.StatusText(status), "injected failure")
			return
		}

		h.ServeHTTP(w, r)
	})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var request models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	u := request.User
	if u.Username == "" || u.Password == "" || u.Name == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "username, password and name are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[u.Username]; exists {
		writeError(w, http.StatusConflict, "Conflict", "There already exists a user with username '"+u.Username+"'")
		return
	}
	s.accounts[u.Username] = &account{
		username:  u.Username,
		password:  u.Password,
		name:      u.Name,
		createdAt: time.Now().UTC(),
	}

	writeJSON(w, http.StatusCreated, models.AuthResponse{
		Token: s.issueToken(u.Username),
		User:  s.userPayload(s.accounts[u.Username]),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var request models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[request.User.Username]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "Could not find user with username of '"+request.User.Username+"'")
		return
	}
	if acc.password != request.User.Password {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Invalid Password")
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token: s.issueToken(acc.username),
		User:  s.userPayload(acc),
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authenticate(w, r); !ok {
		return
	}

	acc, ok := s.accounts[chi.URLParam(r, "username")]
	if !ok {
		writeError(w, http.StatusNotFound, "Not Found", "No such user")
		return
	}

	payload := s.userPayload(acc)
	writeJSON(w, http.StatusOK, models.UserResponse{User: &payload})
}

func (s *Server) addFavorite(w http.ResponseWriter, r *http.Request) {
	s.changeFavorite(w, r, func(acc *account, storyID string) {
		if !contains(acc.favorites, storyID) {
			acc.favorites = append(acc.favorites, storyID)
		}
	}, "Favorite Added!")
}

func (s *Server) removeFavorite(w http.ResponseWriter, r *http.Request) {
	s.changeFavorite(w, r, func(acc *account, storyID string) {
		acc.favorites = without(acc.favorites, storyID)
	}, "Favorite Removed!")
}

func (s *Server) changeFavorite(
	w http.ResponseWriter,
	r *http.Request,
	apply func(acc *account, storyID string),
	message string,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	username := chi.URLParam(r, "username")
	if caller != username {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Only that user can change favorites")
		return
	}

	storyID := chi.URLParam(r, "storyId")
	if _, found := s.findStory(storyID); !found {
		writeError(w, http.StatusNotFound, "Not Found", "No such story: "+storyID)
		return
	}

	acc := s.accounts[username]
	apply(acc, storyID)

	payload := s.userPayload(acc)
	writeJSON(w, http.StatusOK, models.UserResponse{Message: message, User: &payload})
}

func (s *Server) listStories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stories := make([]models.StoryPayload, len(s.stories))
	copy(stories, s.stories)

	writeJSON(w, http.StatusOK, models.StoriesResponse{Stories: stories})
}

func (s *Server) createStory(w http.ResponseWriter, r *http.Request) {
	var request models.NewStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	fields := request.Story
	if fields.Title == "" || fields.Author == "" || fields.URL == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "title, author and url are required")
		return
	}
	if parsed, err := url.ParseRequestURI(fields.URL); err != nil || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "Bad Request", "url must be a valid absolute URL")
		return
	}

	created := s.publish(caller, fields)
	writeJSON(w, http.StatusCreated, models.StoryResponse{Story: &created})
}

func (s *Server) deleteStory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	storyID := chi.URLParam(r, "storyId")
	idx, found := s.findStory(storyID)
	if !found {
		writeError(w, http.StatusNotFound, "Not Found", "No such story: "+storyID)
		return
	}

	removed := s.stories[idx]
	if removed.Username != caller {
		writeError(w, http.StatusForbidden, "Forbidden", "You can only delete your own stories")
		return
	}

	s.stories = append(s.stories[:idx], s.stories[idx+1:]...)
	for _, acc := range s.accounts {
		acc.favorites = without(acc.favorites, storyID)
	}

	writeJSON(w, http.StatusOK, models.StoryResponse{Message: "Deleted story!", Story: &removed})
}

// authenticate must be called with s.mu held.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	username, ok := s.tokens[token]
	if token == "" || !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "A valid token must be provided")
		return "", false
	}

	return username, true
}

func (s *Server) issueToken(username string) string {
	token := uuid.NewString()
	s.tokens[token] = username

	return token
}

func (s *Server) publish(username string, fields models.NewStory) models.StoryPayload {
	created := models.StoryPayload{
		StoryID:   uuid.NewString(),
		Title:     fields.Title,
		Author:    fields.Author,
		URL:       fields.URL,
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	s.stories = append([]models.StoryPayload{created}, s.stories...)

	return created
}

func (s *Server) findStory(storyID string) (int, bool) {
	for i, st := range s.stories {
		if st.StoryID == storyID {
			return i, true
		}
	}

	return -1, false
}

func (s *Server) userPayload(acc *account) models.UserPayload {
	favorites := make([]models.StoryPayload, 0, len(acc.favorites))
	for _, id := range acc.favorites {
		if idx, ok := s.findStory(id); ok {
			favorites = append(favorites, s.stories[idx])
		}
	}

	own := make([]models.StoryPayload, 0)
	for _, st := range s.stories {
		if st.Username == acc.username {
			own = append(own, st)
		}
	}

	return models.UserPayload{
		Username:  acc.username,
		Name:      acc.name,
		CreatedAt: acc.createdAt,
		Favorites: favorites,
		Stories:   own,
	}
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}

	return false
}

func without(ids []string, id string) []string {
	result := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			result = append(result, existing)
		}
	}

	return result
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, title, message string) {
	var body models.ErrorBody
	body.Error.Status = status
	body.Error.Title = title
	body.Error.Message = message

	writeJSON(w, status, body)
}
