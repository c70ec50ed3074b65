package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeResolver struct{ name string }

const resolverKey Key[*fakeResolver] = "test.resolver"

func TestSetGet(t *testing.T) {
	r := New()

	_, ok := Get(r, resolverKey)
	assert.False(t, ok)

	Set(r, resolverKey, &fakeResolver{name: "arbiter"})
	got, ok := Get(r, resolverKey)
	assert.True(t, ok)
	assert.Equal(t, "arbiter", got.name)
}

func TestUnset(t *testing.T) {
	r := New()
	Set(r, resolverKey, &fakeResolver{})
	Unset(r, resolverKey)

	_, ok := Get(r, resolverKey)
	assert.False(t, ok)
}

func TestMustGet_PanicsWhenMissing(t *testing.T) {
	r := New()
	assert.Panics(t, func() { MustGet(r, resolverKey) })
}
