package story

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/hackorsnooze/internal/fakeapi"
	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/transport"
)

type staticToken string

func (t staticToken) ActiveToken() (string, bool) { return string(t), t != "" }

func (t staticToken) TokenRejected(string) {}

// rejectionRecorder remembers which tokens were reported as rejected.
type rejectionRecorder struct {
	token    string
	rejected []string
}

func (r *rejectionRecorder) ActiveToken() (string, bool) { return r.token, r.token != "" }

func (r *rejectionRecorder) TokenRejected(token string) {
	r.rejected = append(r.rejected, token)
}

type favoritesSpy struct {
	favorite bool
	added    []string
	removed  []string
}

func (f *favoritesSpy) IsFavorite(Story) bool { return f.favorite }

func (f *favoritesSpy) AddFavorite(_ context.Context, storyID string) error {
	f.added = append(f.added, storyID)
	return nil
}

func (f *favoritesSpy) RemoveFavorite(_ context.Context, storyID string) error {
	f.removed = append(f.removed, storyID)
	return nil
}

func newTestAPI(t *testing.T) (*fakeapi.Server, *transport.Client) {
	t.Helper()
	api := fakeapi.New()
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return api, transport.New(srv.URL)
}

func TestHostname(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "path and query", url: "https://example.com/a/b?x=1", want: "example.com"},
		{name: "port is dropped", url: "http://news.example.org:8080/item", want: "news.example.org"},
		{name: "subdomain kept", url: "https://www.rithmschool.com/", want: "www.rithmschool.com"},
		{name: "relative", url: "/just/a/path", wantErr: true},
		{name: "no scheme", url: "example.com/a", wantErr: true},
		{name: "garbage", url: "http://[::1", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Story{URL: tt.url}.Hostname()
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrMalformedURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromPayload(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	got := FromPayload(models.StoryPayload{
		StoryID:   "s1",
		Title:     "Go 1.22",
		Author:    "gopher",
		URL:       "https://go.dev/blog",
		Username:  "ann",
		CreatedAt: created,
	})

	assert.Equal(t, Story{
		StoryID:   "s1",
		Title:     "Go 1.22",
		Author:    "gopher",
		URL:       "https://go.dev/blog",
		Username:  "ann",
		CreatedAt: created,
	}, got)
}

func TestToggleFavorite(t *testing.T) {
	s := Story{StoryID: "story42"}

	notYet := &favoritesSpy{favorite: false}
	require.NoError(t, s.ToggleFavorite(context.Background(), notYet))
	assert.Equal(t, []string{"story42"}, notYet.added)
	assert.Empty(t, notYet.removed)

	already := &favoritesSpy{favorite: true}
	require.NoError(t, s.ToggleFavorite(context.Background(), already))
	assert.Equal(t, []string{"story42"}, already.removed)
	assert.Empty(t, already.added)
}

func TestRemove(t *testing.T) {
	api, client := newTestAPI(t)
	token := api.SeedUser("ann", "pw", "Ann")
	otherToken := api.SeedUser("bob", "pw", "Bob")
	payload := api.SeedStory("ann", "t", "a", "https://example.com")
	s := FromPayload(payload)

	err := s.Remove(context.Background(), client, staticToken(""))
	assert.ErrorIs(t, err, models.ErrAuth)

	err = s.Remove(context.Background(), client, staticToken(otherToken))
	assert.ErrorIs(t, err, models.ErrForbidden)

	api.RevokeToken(otherToken)
	err = s.Remove(context.Background(), client, staticToken(otherToken))
	assert.ErrorIs(t, err, models.ErrAuth)

	require.NoError(t, s.Remove(context.Background(), client, staticToken(token)))
	assert.Empty(t, api.StoryIDs())

	err = s.Remove(context.Background(), client, staticToken(token))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemoveWithoutSessionMakesNoCall(t *testing.T) {
	api, client := newTestAPI(t)

	err := Story{StoryID: "x"}.Remove(context.Background(), client, staticToken(""))
	assert.ErrorIs(t, err, models.ErrAuth)
	assert.Equal(t, 0, api.Requests())
}

func TestServerErrorStatus(t *testing.T) {
	api, client := newTestAPI(t)
	api.FailNext(http.StatusServiceUnavailable)

	_, err := FetchAll(context.Background(), client)
	assert.ErrorIs(t, err, models.ErrServer)
}

func TestRejectedTokenIsReported(t *testing.T) {
	tests := []struct {
		name string
		call func(ctx context.Context, client *transport.Client, list *List, p principal, storyID string) error
	}{
		{
			name: "Story.Remove",
			call: func(ctx context.Context, client *transport.Client, _ *List, p principal, storyID string) error {
				return Story{StoryID: storyID}.Remove(ctx, client, p)
			},
		},
		{
			name: "List.RemoveStory",
			call: func(ctx context.Context, _ *transport.Client, list *List, p principal, storyID string) error {
				return list.RemoveStory(ctx, p, storyID)
			},
		},
		{
			name: "List.AddStory",
			call: func(ctx context.Context, _ *transport.Client, list *List, p principal, _ string) error {
				_, err := list.AddStory(ctx, p, models.NewStory{Title: "t", Author: "a", URL: "https://x.example.com"})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, client := newTestAPI(t)
			token := api.SeedUser("ann", "pw", "Ann")
			target := api.SeedStory("ann", "t", "a", "https://example.com")
			list, err := FetchAll(context.Background(), client)
			require.NoError(t, err)

			api.RevokeToken(token)
			recorder := &rejectionRecorder{token: token}
			err = tt.call(context.Background(), client, list, recorder, target.StoryID)

			assert.ErrorIs(t, err, models.ErrAuth)
			assert.Equal(t, []string{token}, recorder.rejected)
			assert.Equal(t, 1, list.Len())
		})
	}
}

func TestOtherFailuresAreNotReportedAsRejection(t *testing.T) {
	api, client := newTestAPI(t)
	api.SeedUser("ann", "pw", "Ann")
	otherToken := api.SeedUser("bob", "pw", "Bob")
	target := api.SeedStory("ann", "t", "a", "https://example.com")

	recorder := &rejectionRecorder{token: otherToken}
	err := FromPayload(target).Remove(context.Background(), client, recorder)
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.Empty(t, recorder.rejected)
}

func TestAddStoryReplyWithoutStory(t *testing.T) {
	for _, body := range []string{``, `{"message":"created"}`, `{"story":{"title":"t"}}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(body))
		}))

		list := NewList(transport.New(srv.URL), nil)
		_, err := list.AddStory(context.Background(), staticToken("T"), models.NewStory{Title: "t", Author: "a", URL: "https://x.example.com"})
		assert.ErrorIs(t, err, models.ErrServer, "body %q", body)
		srv.Close()
	}
}
