package sdk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/roost/sdk/testdata"
)

func TestNewEndpoint(t *testing.T) {
	t.Run("trims trailing separators", func(t *testing.T) {
		ep, err := NewEndpoint("https://api.roost.dev/v1/app/42/")
		require.NoError(t, err)
		assert.Equal(t, "https://api.roost.dev/v1/app/42", ep.Render())
	})

	t.Run("empty base fails", func(t *testing.T) {
		_, err := NewEndpoint("  ")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingBaseURL))
	})

	t.Run("MustEndpoint panics on empty base", func(t *testing.T) {
		assert.Panics(t, func() { MustEndpoint("") })
	})
}

func TestEndpoint_AddAction(t *testing.T) {
	base := MustEndpoint("https://api.roost.dev/v1/app/42")

	tests := []struct {
		name     string
		segments []string
		expected string
	}{
		{"single", []string{"text"}, "https://api.roost.dev/v1/app/42/text"},
		{"leading slash", []string{"/text"}, "https://api.roost.dev/v1/app/42/text"},
		{"trailing slash", []string{"text/"}, "https://api.roost.dev/v1/app/42/text"},
		{"repeated separators", []string{"//text//user/"}, "https://api.roost.dev/v1/app/42/text/user"},
		{"empty ignored", []string{"", "/", "text"}, "https://api.roost.dev/v1/app/42/text"},
		{"chain", []string{"text", "user", "k1,k2"}, "https://api.roost.dev/v1/app/42/text/user/k1,k2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := base
			for _, s := range tt.segments {
				ep = ep.AddAction(s)
			}
			assert.Equal(t, tt.expected, ep.Render())
		})
	}
}

func TestEndpoint_Immutable(t *testing.T) {
	base := MustEndpoint("https://api.roost.dev").AddAction("text")
	a := base.AddAction("a").AddQuery("x", "1")
	b := base.AddAction("b")

	assert.Equal(t, "https://api.roost.dev/text", base.Render())
	assert.Equal(t, "https://api.roost.dev/text/a?x=1", a.Render())
	assert.Equal(t, "https://api.roost.dev/text/b", b.Render())
	assert.Equal(t, []string{"/text"}, base.Actions())
}

func TestEndpoint_RemoveAction(t *testing.T) {
	ep := MustEndpoint("https://h").AddAction("text").AddAction("user").AddAction("k")

	assert.Equal(t, "https://h/text/k", ep.RemoveAction("user").Render())
	assert.Equal(t, "https://h/text/user/k", ep.RemoveAction("missing").Render())
	assert.Equal(t, "https://h/text/user/k", ep.Render(), "receiver unchanged")
}

func TestEndpoint_Query(t *testing.T) {
	ep := MustEndpoint("https://h").AddAction("search").
		AddQuery("q", "%5Ba+%3D+1%5D").
		AddQuery("", "ignored").
		AddFragment("&limit=10&skip=0&count=false&").
		AddFragment("")

	assert.Equal(t, "https://h/search?q=%5Ba+%3D+1%5D&limit=10&skip=0&count=false", ep.Render())
	assert.Equal(t, ep.Render(), ep.String())
}

func TestEndpoint_EqualAndZero(t *testing.T) {
	a := MustEndpoint("https://h").AddAction("x")
	b := MustEndpoint("https://h/").AddAction("/x/")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(a.AddAction("y")))
	assert.True(t, Endpoint{}.IsZero())
	assert.False(t, a.IsZero())
}

func TestEndpoint_ConcurrentSpecialization(t *testing.T) {
	base := MustEndpoint("https://h").AddAction("text")
	results := make([]string, 50)
	run := testdata.NewConcurrent(t)
	run.Run(len(results), func(i int) error {
		results[i] = base.AddAction("k").AddQuery("i", "v").Render()
		return nil
	})
	run.Wait()

	for _, r := range results {
		assert.Equal(t, "https://h/text/k?i=v", r)
	}
	assert.Equal(t, "https://h/text", base.Render())
}
