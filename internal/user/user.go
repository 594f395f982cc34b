// Package user defines the signed-in principal of the story client.
// A User owns its login token, the set of favorited stories and the set
// of stories it authored; both sets are always the last ones confirmed
// by the server.
package user

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/hackorsnooze/internal/logger"
	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/story"
	"github.com/patric-chuzhbe/hackorsnooze/internal/transport"
)

type requester interface {
	Do(ctx context.Context, req transport.Request, result any) error
}

// User is the authenticated principal of the current session.
//
// A User starts out authenticated. When the server rejects its token on
// any call the token is dropped, registered rejection callbacks fire and
// every later authenticated call fails locally with models.ErrAuth.
type User struct {
	client    requester
	username  string
	name      string
	createdAt time.Time

	mu              sync.RWMutex
	loginToken      string
	favorites       []story.Story
	ownStories      []story.Story
	onTokenRejected []func()
}

func newFromPayload(client requester, payload models.UserPayload, token string) *User {
	return &User{
		client:     client,
		username:   payload.Username,
		name:       payload.Name,
		createdAt:  payload.CreatedAt,
		loginToken: token,
		favorites:  story.FromPayloads(payload.Favorites),
		ownStories: story.FromPayloads(payload.Stories),
	}
}

// Signup registers a new account and returns it signed in.
func Signup(ctx context.Context, client requester, username, password, name string) (*User, error) {
	var response models.AuthResponse
	err := client.Do(ctx, transport.Request{
		Operation: "user.signup",
		Method:    http.MethodPost,
		Path:      "/signup",
		Body: models.SignupRequest{
			User: models.SignupUser{Username: username, Password: password, Name: name},
		},
	}, &response)
	if err != nil {
		return nil, err
	}

	return fromAuthResponse(client, response)
}

// Login authenticates with a username and password. An unknown username
// is reported as models.ErrAuth, same as a wrong password.
func Login(ctx context.Context, client requester, username, password string) (*User, error) {
	var response models.AuthResponse
	err := client.Do(ctx, transport.Request{
		Operation: "user.login",
		Method:    http.MethodPost,
		Path:      "/login",
		Body: models.LoginRequest{
			User: models.LoginUser{Username: username, Password: password},
		},
	}, &response)
	if err != nil {
		var apiErr *models.APIError
		if errors.As(err, &apiErr) && errors.Is(apiErr.Kind, models.ErrNotFound) {
			return nil, models.NewAPIError(models.ErrAuth, apiErr.Status, apiErr.Message, nil)
		}

		return nil, err
	}

	return fromAuthResponse(client, response)
}

func fromAuthResponse(client requester, response models.AuthResponse) (*User, error) {
	if response.Token == "" {
		return nil, models.NewAPIError(models.ErrServer, 0, "authentication reply carries no token", nil)
	}
	if response.User.Username == "" {
		return nil, models.NewAPIError(models.ErrServer, 0, "authentication reply carries no user", nil)
	}

	return newFromPayload(client, response.User, response.Token), nil
}

// RestoreFromStoredCredentials re-fetches the profile of username with a
// previously saved token. Any failure yields (nil, false); the error is
// only logged.
func RestoreFromStoredCredentials(ctx context.Context, client requester, token, username string) (*User, bool) {
	if token == "" || username == "" {
		return nil, false
	}

	payload, err := fetchProfile(ctx, client, token, username, "user.restore")
	if err != nil {
		logger.Log.Warnln("restoring stored credentials failed", "username", username, zap.Error(err))
		return nil, false
	}
	if payload.Username != username {
		logger.Log.Warnln("restoring stored credentials returned another user", "username", username, "got", payload.Username)
		return nil, false
	}

	return newFromPayload(client, payload, token), true
}

func fetchProfile(ctx context.Context, client requester, token, username, operation string) (models.UserPayload, error) {
	var response models.UserResponse
	err := client.Do(ctx, transport.Request{
		Operation:   operation,
		Method:      http.MethodGet,
		Path:        "/users/{username}",
		PathParams:  map[string]string{"username": username},
		Token:       token,
		QueryParams: map[string]string{"token": token},
	}, &response)
	if err != nil {
		return models.UserPayload{}, err
	}
	if response.User == nil || response.User.Username == "" {
		return models.UserPayload{}, models.NewAPIError(models.ErrServer, 0, "profile reply carries no user", nil)
	}

	return *response.User, nil
}

func (u *User) Username() string { return u.username }

func (u *User) Name() string { return u.name }

func (u *User) CreatedAt() time.Time { return u.createdAt }

// LoginToken returns the bearer token, or "" once it has been rejected.
func (u *User) LoginToken() string {
	u.mu.RLock()
	defer u.mu.RUnlock()

	return u.loginToken
}

// ActiveToken reports the token and whether the user is still authenticated.
func (u *User) ActiveToken() (string, bool) {
	token := u.LoginToken()

	return token, token != ""
}

func (u *User) Authenticated() bool {
	return u.LoginToken() != ""
}

// OnTokenRejected registers fn to run when the server rejects the token.
func (u *User) OnTokenRejected(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.onTokenRejected = append(u.onTokenRejected, fn)
}

// Favorites returns a copy of the favorited stories.
func (u *User) Favorites() []story.Story {
	u.mu.RLock()
	defer u.mu.RUnlock()

	result := make([]story.Story, len(u.favorites))
	copy(result, u.favorites)

	return result
}

// OwnStories returns a copy of the stories authored by the user.
func (u *User) OwnStories() []story.Story {
	u.mu.RLock()
	defer u.mu.RUnlock()

	result := make([]story.Story, len(u.ownStories))
	copy(result, u.ownStories)

	return result
}

// IsFavorite tests s against the local favorites; it never calls the server.
func (u *User) IsFavorite(s story.Story) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()

	for _, favorite := range u.favorites {
		if favorite.StoryID == s.StoryID {
			return true
		}
	}

	return false
}

// IsOwnStory reports whether s was posted by this user.
func (u *User) IsOwnStory(s story.Story) bool {
	return s.Username == u.username
}

// AddFavorite favorites storyID and replaces the local favorites with
// the set returned by the server.
func (u *User) AddFavorite(ctx context.Context, storyID string) error {
	return u.changeFavorite(ctx, http.MethodPost, storyID, "user.favorite.add")
}

// RemoveFavorite unfavorites storyID and replaces the local favorites
// with the set returned by the server.
func (u *User) RemoveFavorite(ctx context.Context, storyID string) error {
	return u.changeFavorite(ctx, http.MethodDelete, storyID, "user.favorite.remove")
}

func (u *User) changeFavorite(ctx context.Context, method, storyID, operation string) error {
	var response models.UserResponse
	err := u.do(ctx, transport.Request{
		Operation: operation,
		Method:    method,
		Path:      "/users/{username}/favorites/{storyId}",
		PathParams: map[string]string{
			"username": u.username,
			"storyId":  storyID,
		},
	}, &response)
	if err != nil {
		return err
	}
	if response.User == nil || response.User.Favorites == nil {
		return models.NewAPIError(models.ErrServer, 0, "favorites reply carries no favorites", nil)
	}

	favorites := story.FromPayloads(response.User.Favorites)

	u.mu.Lock()
	u.favorites = favorites
	u.mu.Unlock()

	return nil
}

// RemoveOwnStory deletes one of the user's stories and drops it from
// the own-stories set. The server answers models.ErrForbidden if the
// story belongs to someone else.
func (u *User) RemoveOwnStory(ctx context.Context, storyID string) error {
	err := u.do(ctx, transport.Request{
		Operation:  "stories.remove",
		Method:     http.MethodDelete,
		Path:       "/stories/{storyId}",
		PathParams: map[string]string{"storyId": storyID},
	}, nil)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.ownStories = funk.Filter(u.ownStories, func(s story.Story) bool {
		return s.StoryID != storyID
	}).([]story.Story)

	return nil
}

// Refresh re-fetches the profile and replaces favorites and own stories
// with the server's current sets.
func (u *User) Refresh(ctx context.Context) error {
	token := u.LoginToken()
	if token == "" {
		return noTokenError()
	}

	payload, err := fetchProfile(ctx, u.client, token, u.username, "user.refresh")
	if err != nil {
		u.checkRejected(err, token)
		return err
	}

	favorites := story.FromPayloads(payload.Favorites)
	ownStories := story.FromPayloads(payload.Stories)

	u.mu.Lock()
	u.favorites = favorites
	u.ownStories = ownStories
	u.mu.Unlock()

	return nil
}

// do sends an authenticated request with the current token.
func (u *User) do(ctx context.Context, req transport.Request, result any) error {
	token := u.LoginToken()
	if token == "" {
		return noTokenError()
	}
	req.Token = token

	err := u.client.Do(ctx, req, result)
	u.checkRejected(err, token)

	return err
}

func (u *User) checkRejected(err error, token string) {
	if errors.Is(err, models.ErrAuth) {
		u.TokenRejected(token)
	}
}

// TokenRejected drops token if it is still the user's current one and
// runs the rejection callbacks. Calls made with the token outside of User
// report a 401 here.
func (u *User) TokenRejected(token string) {
	if token == "" {
		return
	}

	u.mu.Lock()
	if u.loginToken != token {
		u.mu.Unlock()
		return
	}
	u.loginToken = ""
	callbacks := make([]func(), len(u.onTokenRejected))
	copy(callbacks, u.onTokenRejected)
	u.mu.Unlock()

	logger.Log.Infoln("login token rejected", "username", u.username)
	for _, callback := range callbacks {
		callback()
	}
}

func noTokenError() error {
	return models.NewAPIError(models.ErrAuth, 0, "no active login token", nil)
}
