package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAny(t *testing.T) {
	assert.True(t, HasAny("UNIQUE constraint failed: users.email", "unique constraint"))
	assert.True(t, HasAny("ERROR: duplicate key value violates", "nope", "duplicate key"))
	assert.False(t, HasAny("connection refused", "unique constraint", "duplicate key"))
	assert.False(t, HasAny("anything"))
}
