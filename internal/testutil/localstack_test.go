package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueName(t *testing.T) {
	a := UniqueName("bucket")
	b := UniqueName("bucket")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "bucket-"))
	assert.Len(t, a, len("bucket-")+12)
	assert.Equal(t, strings.ToLower(a), a)
}
