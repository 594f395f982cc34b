// Package story models the stories published on the service: a single
// Story value and the server-backed List of all stories.
package story

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/transport"
)

type requester interface {
	Do(ctx context.Context, req transport.Request, result any) error
}

type favoriter interface {
	IsFavorite(s Story) bool
	AddFavorite(ctx context.Context, storyID string) error
	RemoveFavorite(ctx context.Context, storyID string) error
}

// principal is whoever is currently signed in. It hands out its token and
// is told when the server rejects it.
type principal interface {
	ActiveToken() (string, bool)
	TokenRejected(token string)
}

// Story is one published link. Values are never changed after they are
// built from a server reply; collections hand out copies.
type Story struct {
	StoryID   string
	Title     string
	Author    string
	URL       string
	Username  string
	CreatedAt time.Time
}

// FromPayload maps the server representation onto a Story.
func FromPayload(p models.StoryPayload) Story {
	return Story{
		StoryID:   p.StoryID,
		Title:     p.Title,
		Author:    p.Author,
		URL:       p.URL,
		Username:  p.Username,
		CreatedAt: p.CreatedAt,
	}
}

// FromPayloads maps a slice of payloads, preserving order.
func FromPayloads(payloads []models.StoryPayload) []Story {
	result := make([]Story, 0, len(payloads))
	for _, p := range payloads {
		result = append(result, FromPayload(p))
	}

	return result
}

// Hostname returns the host part of the story URL, without port.
func (s Story) Hostname() (string, error) {
	parsed, err := url.Parse(s.URL)
	if err != nil {
		return "", models.NewAPIError(models.ErrMalformedURL, 0, s.URL, err)
	}
	if !parsed.IsAbs() || parsed.Hostname() == "" {
		return "", models.NewAPIError(models.ErrMalformedURL, 0, s.URL, nil)
	}

	return parsed.Hostname(), nil
}

// ToggleFavorite flips the favorite state of s for u, going through the
// server either way.
func (s Story) ToggleFavorite(ctx context.Context, u favoriter) error {
	if u.IsFavorite(s) {
		return u.RemoveFavorite(ctx, s.StoryID)
	}

	return u.AddFavorite(ctx, s.StoryID)
}

// Remove deletes s on the server using the credential of the active
// session. It does not touch any local collection.
func (s Story) Remove(ctx context.Context, client requester, active principal) error {
	return deleteStory(ctx, client, active, s.StoryID)
}

func deleteStory(ctx context.Context, client requester, p principal, storyID string) error {
	return authorizedDo(ctx, client, p, transport.Request{
		Operation:  "stories.remove",
		Method:     http.MethodDelete,
		Path:       "/stories/{storyId}",
		PathParams: map[string]string{"storyId": storyID},
	}, nil)
}

// authorizedDo sends req with the token of p and tells p when the server
// rejects that token.
func authorizedDo(ctx context.Context, client requester, p principal, req transport.Request, result any) error {
	token, ok := p.ActiveToken()
	if !ok || token == "" {
		return noTokenError()
	}
	req.Token = token

	err := client.Do(ctx, req, result)
	if errors.Is(err, models.ErrAuth) {
		p.TokenRejected(token)
	}

	return err
}

func noTokenError() error {
	return models.NewAPIError(models.ErrAuth, 0, "no active login token", nil)
}
