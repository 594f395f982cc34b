package story

import (
	"context"
	"net/http"
	"sync"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/hackorsnooze/internal/models"
	"github.com/patric-chuzhbe/hackorsnooze/internal/transport"
)

// List is the ordered collection of every story, newest first as the
// server returns them. Story ids are unique within a List.
type List struct {
	mu      sync.RWMutex
	client  requester
	stories []Story
}

// NewList wraps stories, dropping any repeated id after its first occurrence.
func NewList(client requester, stories []Story) *List {
	seen := make(map[string]struct{}, len(stories))
	unique := make([]Story, 0, len(stories))
	for _, s := range stories {
		if _, ok := seen[s.StoryID]; ok {
			continue
		}
		seen[s.StoryID] = struct{}{}
		unique = append(unique, s)
	}

	return &List{
		client:  client,
		stories: unique,
	}
}

// FetchAll retrieves every story from the server.
func FetchAll(ctx context.Context, client requester) (*List, error) {
	var response models.StoriesResponse
	err := client.Do(ctx, transport.Request{
		Operation: "stories.fetch",
		Method:    http.MethodGet,
		Path:      "/stories",
	}, &response)
	if err != nil {
		return nil, err
	}

	return NewList(client, FromPayloads(response.Stories)), nil
}

// Stories returns a copy of the current contents.
func (l *List) Stories() []Story {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Story, len(l.stories))
	copy(result, l.stories)

	return result
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.stories)
}

// Find looks a story up by id.
func (l *List) Find(storyID string) (Story, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.stories {
		if s.StoryID == storyID {
			return s, true
		}
	}

	return Story{}, false
}

// Prepend puts s at the front of the list. It reports false and leaves
// the list alone if a story with the same id is already present.
func (l *List) Prepend(s Story) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if funk.Find(l.stories, func(existing Story) bool { return existing.StoryID == s.StoryID }) != nil {
		return false
	}
	l.stories = append([]Story{s}, l.stories...)

	return true
}

// AddStory creates a story on behalf of u and returns it. The list
// itself is not modified; callers Prepend the result where they want it.
func (l *List) AddStory(ctx context.Context, u principal, fields models.NewStory) (Story, error) {
	var response models.StoryResponse
	err := authorizedDo(ctx, l.client, u, transport.Request{
		Operation: "stories.create",
		Method:    http.MethodPost,
		Path:      "/stories",
		Body:      models.NewStoryRequest{Story: fields},
	}, &response)
	if err != nil {
		return Story{}, err
	}
	if response.Story == nil || response.Story.StoryID == "" {
		return Story{}, models.NewAPIError(models.ErrServer, 0, "create reply carries no story", nil)
	}

	return FromPayload(*response.Story), nil
}

// RemoveStory deletes storyID on the server and then drops it from the
// list. On failure the list is left unchanged.
func (l *List) RemoveStory(ctx context.Context, u principal, storyID string) error {
	if err := deleteStory(ctx, l.client, u, storyID); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stories = funk.Filter(l.stories, func(s Story) bool {
		return s.StoryID != storyID
	}).([]Story)

	return nil
}
