// Package models holds the wire shapes exchanged with the story-sharing
// service. Field names match the remote contract exactly; the mapping
// into client-side objects happens in the story and user packages.
package models

import "time"

// StoryPayload is a story as the server serialises it.
type StoryPayload struct {
	StoryID   string    `json:"storyId"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserPayload is a user profile as the server serialises it.
// Stories holds the stories authored by the user.
type UserPayload struct {
	Username  string         `json:"username"`
	Name      string         `json:"name"`
	CreatedAt time.Time      `json:"createdAt"`
	Favorites []StoryPayload `json:"favorites"`
	Stories   []StoryPayload `json:"stories"`
}

// AuthResponse is returned by both signup and login.
type AuthResponse struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

// UserResponse is returned by the profile and favorites endpoints. User is
// nil when the reply carries no user object.
type UserResponse struct {
	Message string       `json:"message,omitempty"`
	User    *UserPayload `json:"user"`
}

// StoriesResponse is the reply of GET /stories.
type StoriesResponse struct {
	Stories []StoryPayload `json:"stories"`
}

// StoryResponse is returned when a story is created or deleted. Story is
// nil when the reply carries no story object.
type StoryResponse struct {
	Message string        `json:"message,omitempty"`
	Story   *StoryPayload `json:"story"`
}

// SignupUser holds the fields of a new account.
type SignupUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignupRequest is the body of POST /signup.
type SignupRequest struct {
	User SignupUser `json:"user"`
}

// LoginUser holds login credentials.
type LoginUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	User LoginUser `json:"user"`
}

// NewStory carries the caller-supplied fields of a story to be created.
type NewStory struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// NewStoryRequest is the body of POST /stories.
type NewStoryRequest struct {
	Story NewStory `json:"story"`
}

// ErrorBody is the error envelope sent by the server on non-2xx replies.
type ErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Title   string `json:"title"`
		Message string `json:"message"`
	} `json:"error"`
}
