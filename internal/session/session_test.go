package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore/jsonstore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore/memorystore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore/mockstore"
	"github.com/patric-chuzhbe/hackorsnooze/internal/fakeapi"
	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/story"
	"github.com/patric-chuzhbe/hackorsnooze/internal/transport"
	"github.com/patric-chuzhbe/hackorsnooze/internal/user"
)

func newTestAPI(t *testing.T) (*fakeapi.Server, *transport.Client) {
	t.Helper()
	api := fakeapi.New()
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return api, transport.New(srv.URL)
}

func TestSignupLoginFavoriteLogoutScenario(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("bob", "pw", "Bob")
	api.SeedStoryWithID("story42", "bob", "Answer", "Bob", "https://answer.example.com")
	store := memorystore.New()
	ctx := context.Background()

	first := New(store, client)
	signedUp, err := first.Signup(ctx, "ann", "pw", "Ann")
	require.NoError(t, err)
	tokenT := signedUp.LoginToken()
	require.NotEmpty(t, tokenT)
	require.NoError(t, first.Logout())

	s := New(store, client)
	u, err := s.Authenticate(ctx, "ann", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, u.LoginToken())
	assert.Equal(t, signedUp.Username(), u.Username())
	assert.Equal(t, signedUp.Name(), u.Name())

	require.NoError(t, u.AddFavorite(ctx, "story42"))
	assert.True(t, u.IsFavorite(story.Story{StoryID: "story42"}))

	require.NoError(t, s.Logout())
	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
	_, ok := s.CurrentUser()
	assert.False(t, ok)
}

func TestLoginPersistsAndBootstrapRestores(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")
	fileName := filepath.Join(t.TempDir(), "credentials.json")

	s := New(jsonstore.New(fileName), client)
	u, err := s.Authenticate(context.Background(), "ann", "pw")
	require.NoError(t, err)

	restarted := New(jsonstore.New(fileName), client)
	require.True(t, restarted.Bootstrap(context.Background()))

	current, ok := restarted.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "ann", current.Username())
	assert.Equal(t, "Ann", current.Name())
	token, active := restarted.ActiveToken()
	assert.True(t, active)
	assert.Equal(t, u.LoginToken(), token)
}

func TestBootstrapWithoutStoredCredentials(t *testing.T) {
	api, client := newTestAPI(t)
	s := New(memorystore.New(), client)

	assert.False(t, s.Bootstrap(context.Background()))
	_, ok := s.CurrentUser()
	assert.False(t, ok)
	assert.Equal(t, "", s.LoginToken())
	assert.Equal(t, 0, api.Requests())
}

func TestBootstrapWithExpiredTokenLeavesStoreUntouched(t *testing.T) {
	api, client := newTestAPI(t)
	token := api.SeedUser("ann", "pw", "Ann")
	api.RevokeToken(token)

	store := &mockstore.StoreMock{}
	store.On("Load").Return(credstore.Credentials{Token: token, Username: "ann"}, true, nil)

	s := New(store, client)
	assert.False(t, s.Bootstrap(context.Background()))
	_, ok := s.CurrentUser()
	assert.False(t, ok)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Clear")
	store.AssertNotCalled(t, "Save", mock.Anything)
}

func TestBootstrapToleratesBrokenStore(t *testing.T) {
	_, client := newTestAPI(t)

	corrupt := &mockstore.StoreMock{}
	corrupt.On("Load").Return(credstore.Credentials{}, false, credstore.ErrCorrupt)
	assert.False(t, New(corrupt, client).Bootstrap(context.Background()))

	fileName := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(fileName, []byte(`{"token":"T"}`), 0o600))
	assert.False(t, New(jsonstore.New(fileName), client).Bootstrap(context.Background()))
}

func TestBootstrapRejectsTokenOfAnotherUser(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "bob"}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	store := memorystore.New()
	require.NoError(t, store.Save(credstore.Credentials{Token: foreign, Username: "ann"}))

	s := New(store, client)
	assert.False(t, s.Bootstrap(context.Background()))
	assert.Equal(t, 0, api.Requests())

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.True(t, found, "store is left untouched")
}

func TestTokenUsername(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "ann", "iat": 1}).
		SignedString([]byte("secret"))
	require.NoError(t, err)

	username, ok := tokenUsername(signed)
	assert.True(t, ok)
	assert.Equal(t, "ann", username)

	_, ok = tokenUsername("7b1c8f4e-opaque")
	assert.False(t, ok)
}

func TestLoginDoesNotAdoptUserWhenSaveFails(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")

	store := &mockstore.StoreMock{}
	store.On("Save", mock.AnythingOfType("credstore.Credentials")).Return(errors.New("disk full"))

	s := New(store, client)
	_, err := s.Authenticate(context.Background(), "ann", "pw")
	assert.Error(t, err)
	_, ok := s.CurrentUser()
	assert.False(t, ok)
	store.AssertExpectations(t)
}

func TestLogoutClearsMemoryEvenIfStoreFails(t *testing.T) {
	api, client := newTestAPI(t)
	token := api.SeedUser("ann", "pw", "Ann")

	store := &mockstore.StoreMock{}
	store.On("Save", credstore.Credentials{Token: token, Username: "ann"}).Return(nil)
	store.On("Clear").Return(errors.New("read-only file system"))

	u, ok := user.RestoreFromStoredCredentials(context.Background(), client, token, "ann")
	require.True(t, ok)

	s := New(store, client)
	hookCalls := 0
	s.OnLogout(func() { hookCalls++ })
	require.NoError(t, s.Login(u))

	assert.Error(t, s.Logout())
	_, current := s.CurrentUser()
	assert.False(t, current)
	assert.Equal(t, 1, hookCalls)
	store.AssertExpectations(t)
}

func TestRejectedTokenLogsOut(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")
	target := api.SeedStory("ann", "t", "a", "https://example.com")
	store := memorystore.New()

	s := New(store, client)
	loggedOut := false
	s.OnLogout(func() { loggedOut = true })
	u, err := s.Authenticate(context.Background(), "ann", "pw")
	require.NoError(t, err)

	api.RevokeToken(u.LoginToken())
	err = u.AddFavorite(context.Background(), target.StoryID)
	assert.ErrorIs(t, err, models.ErrAuth)

	assert.True(t, loggedOut)
	_, ok := s.CurrentUser()
	assert.False(t, ok)
	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoginRejectsUserWithoutToken(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")
	target := api.SeedStory("ann", "t", "a", "https://example.com")

	s := New(memorystore.New(), client)
	u, err := s.Authenticate(context.Background(), "ann", "pw")
	require.NoError(t, err)
	api.RevokeToken(u.LoginToken())
	require.Error(t, u.AddFavorite(context.Background(), target.StoryID))

	err = New(memorystore.New(), client).Login(u)
	assert.ErrorIs(t, err, models.ErrAuth)
}

func TestReplacedUserRejectionDoesNotLogOutSuccessor(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")
	api.SeedUser("bob", "pw", "Bob")
	target := api.SeedStory("ann", "t", "a", "https://example.com")

	s := New(memorystore.New(), client)
	ann, err := s.Authenticate(context.Background(), "ann", "pw")
	require.NoError(t, err)
	_, err = s.Authenticate(context.Background(), "bob", "pw")
	require.NoError(t, err)

	api.RevokeToken(ann.LoginToken())
	require.Error(t, ann.AddFavorite(context.Background(), target.StoryID))

	current, ok := s.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "bob", current.Username())
}

func TestAuthenticateFailures(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")
	store := memorystore.New()
	s := New(store, client)

	_, err := s.Authenticate(context.Background(), "ann", "wrong")
	assert.ErrorIs(t, err, models.ErrAuth)
	_, err = s.Authenticate(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, models.ErrAuth)
	_, err = s.Signup(context.Background(), "ann", "pw", "Ann again")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRejectedTokenOnStoryCallsLogsOut(t *testing.T) {
	tests := []struct {
		name string
		call func(ctx context.Context, s *Session, client *transport.Client, list *story.List, storyID string) error
	}{
		{
			name: "add story",
			call: func(ctx context.Context, s *Session, _ *transport.Client, list *story.List, _ string) error {
				_, err := list.AddStory(ctx, s, models.NewStory{Title: "t", Author: "a", URL: "https://x.example.com"})
				return err
			},
		},
		{
			name: "remove story from list",
			call: func(ctx context.Context, s *Session, _ *transport.Client, list *story.List, storyID string) error {
				return list.RemoveStory(ctx, s, storyID)
			},
		},
		{
			name: "remove story",
			call: func(ctx context.Context, s *Session, client *transport.Client, list *story.List, storyID string) error {
				target, _ := list.Find(storyID)
				return target.Remove(ctx, client, s)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newTestAPI(t)
			api.SeedUser("ann", "pw", "Ann")
			target := api.SeedStory("ann", "t", "a", "https://example.com")
			store := memorystore.New()

			s := New(store, client)
			loggedOut := 0
			s.OnLogout(func() { loggedOut++ })
			u, err := s.Authenticate(context.Background(), "ann", "pw")
			require.NoError(t, err)
			list, err := story.FetchAll(context.Background(), client)
			require.NoError(t, err)

			api.RevokeToken(u.LoginToken())
			err = tt.call(context.Background(), s, client, list, target.StoryID)
			assert.ErrorIs(t, err, models.ErrAuth)

			assert.False(t, u.Authenticated())
			_, ok := s.CurrentUser()
			assert.False(t, ok)
			assert.Equal(t, 1, loggedOut)
			_, found, err := store.Load()
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestTokenRejectedWithoutCurrentUser(t *testing.T) {
	_, client := newTestAPI(t)
	s := New(memorystore.New(), client)

	loggedOut := 0
	s.OnLogout(func() { loggedOut++ })
	s.TokenRejected("T")

	assert.Equal(t, 0, loggedOut)
}

func TestRepeatedLoginRegistersRejectionOnce(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")
	target := api.SeedStory("ann", "t", "a", "https://example.com")

	s := New(memorystore.New(), client)
	u, err := s.Authenticate(context.Background(), "ann", "pw")
	require.NoError(t, err)
	require.NoError(t, s.Login(u))
	require.NoError(t, s.Logout())
	require.NoError(t, s.Login(u))
	assert.Len(t, s.watched, 1)

	loggedOut := 0
	s.OnLogout(func() { loggedOut++ })
	api.RevokeToken(u.LoginToken())
	require.Error(t, u.AddFavorite(context.Background(), target.StoryID))

	assert.Equal(t, 1, loggedOut)
	_, ok := s.CurrentUser()
	assert.False(t, ok)
}
