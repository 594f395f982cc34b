// Package credstore defines the durable login credentials of the story
// client and the storage back-ends able to keep them across restarts.
package credstore

import (
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
)

// Credentials is the pair persisted after a successful login. The two
// fields are always written and cleared together.
type Credentials struct {
	Token    string `json:"token" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// ErrCorrupt is returned by Load when something is persisted but is not
// a usable pair.
var ErrCorrupt = errors.New("persisted credentials are corrupt")

const (
	StorageTypeUnknown = iota
	StorageTypeSQL
	StorageTypeFile
	StorageTypeMemory
)

var validate = validator.New()

// Validate checks that both halves of the pair are present.
func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	return nil
}
