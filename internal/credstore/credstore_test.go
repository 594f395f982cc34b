package credstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Credentials{Token: "T", Username: "ann"}.Validate())
	assert.ErrorIs(t, Credentials{Token: "T"}.Validate(), ErrCorrupt)
	assert.ErrorIs(t, Credentials{Username: "ann"}.Validate(), ErrCorrupt)
	assert.ErrorIs(t, Credentials{}.Validate(), ErrCorrupt)
}
