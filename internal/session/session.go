// Package session holds the current signed-in user of the story client and
// keeps it in step with the persisted credentials.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/logger"
	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/transport"
	"github.com/patric-chuzhbe/hackorsnooze/internal/user"
)

type credentialsKeeper interface {
	Load() (credstore.Credentials, bool, error)
	Save(creds credstore.Credentials) error
	Clear() error
}

type requester interface {
	Do(ctx context.Context, req transport.Request, result any) error
}

// Session is the explicit replacement of a process-wide "current user".
// Several sessions may coexist, each with its own credentials store.
type Session struct {
	store  credentialsKeeper
	client requester

	mu          sync.RWMutex
	current     *user.User
	watched     map[*user.User]struct{}
	logoutHooks []func()
}

func New(store credentialsKeeper, client requester) *Session {
	return &Session{
		store:   store,
		client:  client,
		watched: map[*user.User]struct{}{},
	}
}

// Bootstrap restores the user recorded in the store, if any. It reports
// whether a user is now signed in and never fails: missing, corrupt or
// expired credentials leave the session signed out and the store as it was.
func (s *Session) Bootstrap(ctx context.Context) bool {
	creds, found, err := s.store.Load()
	if err != nil {
		logger.Log.Warnln("reading stored credentials failed", zap.Error(err))
		return false
	}
	if !found {
		return false
	}

	if claimed, ok := tokenUsername(creds.Token); ok && claimed != creds.Username {
		logger.Log.Warnln("stored token belongs to another user", "username", creds.Username, "claimed", claimed)
		return false
	}

	u, ok := user.RestoreFromStoredCredentials(ctx, s.client, creds.Token, creds.Username)
	if !ok {
		return false
	}
	s.adopt(u)
	logger.Log.Infoln("session restored", "username", u.Username())

	return true
}

// tokenUsername reads the username claim of a JWT without verifying it.
// Opaque tokens report ok == false.
func tokenUsername(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	username, ok := claims["username"].(string)

	return username, ok
}

// Login persists the credentials of u and makes it the current user. If
// the credentials cannot be written the session is left unchanged.
func (s *Session) Login(u *user.User) error {
	token := u.LoginToken()
	if token == "" {
		return models.NewAPIError(models.ErrAuth, 0, "user has no active login token", nil)
	}

	if err := s.store.Save(credstore.Credentials{Token: token, Username: u.Username()}); err != nil {
		return fmt.Errorf("persisting credentials: %w", err)
	}
	s.adopt(u)

	return nil
}

// adopt makes u current. The rejection callback is registered once per
// user, however often it is adopted.
func (s *Session) adopt(u *user.User) {
	s.mu.Lock()
	s.current = u
	_, registered := s.watched[u]
	s.watched[u] = struct{}{}
	s.mu.Unlock()

	if registered {
		return
	}

	u.OnTokenRejected(func() {
		if current, ok := s.CurrentUser(); ok && current == u {
			if err := s.Logout(); err != nil {
				logger.Log.Warnln("logout after token rejection failed", zap.Error(err))
			}
		}
	})
}

// Logout forgets the current user, erases the stored credentials and runs
// the OnLogout hooks. It never contacts the server. The in-memory state is
// cleared even if the store fails; that error is returned.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.current = nil
	hooks := make([]func(), len(s.logoutHooks))
	copy(hooks, s.logoutHooks)
	s.mu.Unlock()

	err := s.store.Clear()
	for _, hook := range hooks {
		hook()
	}

	return err
}

// OnLogout registers fn to run after every logout, for callers that keep
// state derived from the current user.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logoutHooks = append(s.logoutHooks, fn)
}

// Signup creates an account and logs it in.
func (s *Session) Signup(ctx context.Context, username, password, name string) (*user.User, error) {
	u, err := user.Signup(ctx, s.client, username, password, name)
	if err != nil {
		return nil, err
	}
	if err := s.Login(u); err != nil {
		return nil, err
	}

	return u, nil
}

// Authenticate logs in with a username and password.
func (s *Session) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	u, err := user.Login(ctx, s.client, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.Login(u); err != nil {
		return nil, err
	}

	return u, nil
}

func (s *Session) CurrentUser() (*user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current, s.current != nil
}

// ActiveToken returns the token of the current user, if it is still valid.
func (s *Session) ActiveToken() (string, bool) {
	u, ok := s.CurrentUser()
	if !ok {
		return "", false
	}

	return u.ActiveToken()
}

// TokenRejected passes a 401 seen outside of the user's own calls on to
// the current user, which logs the session out.
func (s *Session) TokenRejected(token string) {
	if u, ok := s.CurrentUser(); ok {
		u.TokenRejected(token)
	}
}

func (s *Session) LoginToken() string {
	token, _ := s.ActiveToken()
	return token
}
