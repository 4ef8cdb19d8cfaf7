package sdk

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawFragment string

func (r rawFragment) Fragment() string { return string(r) }

func TestPagingOptions(t *testing.T) {
	t.Run("renders all fields", func(t *testing.T) {
		p, err := NewPagingOptions(10, 20, true)
		require.NoError(t, err)
		assert.Equal(t, "limit=10&skip=20&count=true", p.Fragment())
	})

	t.Run("backend default limit", func(t *testing.T) {
		p, err := NewPagingOptions(-1, 0, false)
		require.NoError(t, err)
		assert.Equal(t, "limit=-1&skip=0&count=false", p.Fragment())
	})

	t.Run("invalid values fail fast", func(t *testing.T) {
		_, err := NewPagingOptions(-2, 0, false)
		assert.True(t, errors.Is(err, ErrInvalidOption))
		_, err = NewPagingOptions(1, -1, false)
		assert.True(t, errors.Is(err, ErrInvalidOption))
	})

	t.Run("absent renders nothing", func(t *testing.T) {
		assert.Empty(t, NoPaging.Fragment())
	})
}

func TestSortOptions(t *testing.T) {
	asc, err := NewSortOptions("name", Ascending)
	require.NoError(t, err)
	desc, err := NewSortOptions("level", Descending)
	require.NoError(t, err)

	assert.Equal(t, "sort=name:asc", asc.Fragment())
	assert.Equal(t, "sort=level:desc", desc.Fragment())
	assert.Empty(t, NoSort.Fragment())

	_, err = NewSortOptions(" ", Ascending)
	assert.True(t, errors.Is(err, ErrInvalidOption))
}

func TestServerFunction(t *testing.T) {
	t.Run("name is escaped", func(t *testing.T) {
		fn, err := NewServerFunction("score/rank me", WithResultsOnly(true))
		require.NoError(t, err)
		assert.Equal(t, "f=score%2Frank+me&result_only=true", fn.Fragment())
	})

	t.Run("async and params", func(t *testing.T) {
		fn, err := NewServerFunction("top",
			WithAsync(false),
			WithFunctionParams(map[string]any{"season": 3, "board": "global"}))
		require.NoError(t, err)
		assert.Equal(t,
			"f=top&result_only=false&async=false&params=%7B%22board%22%3A%22global%22%2C%22season%22%3A3%7D",
			fn.Fragment())
	})

	t.Run("empty name fails fast", func(t *testing.T) {
		fn, err := NewServerFunction("  ")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEmptyFunctionName))
		assert.Empty(t, fn.Name())
		assert.Empty(t, fn.Fragment())
	})

	t.Run("unencodable params fail fast", func(t *testing.T) {
		_, err := NewServerFunction("top", WithFunctionParams(map[string]any{"ch": make(chan int)}))
		require.Error(t, err)
		assert.True(t, IsConversion(err))
	})
}

func TestSharedDataOptions(t *testing.T) {
	assert.Equal(t, "shared=true", NewSharedDataOptions(true, false).Fragment())
	assert.Equal(t, "shared=false", NewSharedDataOptions(false, false).Fragment())
	assert.Equal(t, "shared=true&shared_only=true", NewSharedDataOptions(false, true).Fragment())
	assert.Empty(t, NoShared.Fragment())
}

func TestRequestOptions_Fragment(t *testing.T) {
	paging, _ := NewPagingOptions(5, 0, false)
	sort, _ := NewSortOptions("name", Ascending)
	fn, _ := NewServerFunction("f1", WithResultsOnly(true))
	shared := NewSharedDataOptions(true, false)

	t.Run("declared order regardless of argument order", func(t *testing.T) {
		opts := NewRequestOptions(shared, sort, fn, paging)
		assert.Equal(t, "limit=5&skip=0&count=false&f=f1&result_only=true&sort=name:asc&shared=true", opts.Fragment())
	})

	t.Run("no leading or doubled separators for any subset", func(t *testing.T) {
		parts := []QueryFragment{paging, sort, fn, shared}
		for mask := 0; mask < 1<<len(parts); mask++ {
			var chosen []QueryFragment
			for i, p := range parts {
				if mask&(1<<i) != 0 {
					chosen = append(chosen, p)
				}
			}
			f := NewRequestOptions(chosen...).Fragment()
			assert.False(t, strings.HasPrefix(f, "&"), "mask %b: %q", mask, f)
			assert.False(t, strings.HasSuffix(f, "&"), "mask %b: %q", mask, f)
			assert.NotContains(t, f, "&&", "mask %b", mask)
		}
	})

	t.Run("unknown fragments appended", func(t *testing.T) {
		opts := NewRequestOptions(paging, rawFragment("&beta=1&"), nil)
		assert.Equal(t, "limit=5&skip=0&count=false&beta=1", opts.Fragment())
	})

	t.Run("nil and empty options", func(t *testing.T) {
		var opts *RequestOptions
		assert.Empty(t, opts.Fragment())
		assert.Empty(t, NoOptions.Fragment())
		assert.Equal(t, NoFunction, opts.Function())
		assert.Equal(t, NoPaging, opts.Paging())
	})

	t.Run("raw fragment", func(t *testing.T) {
		assert.Equal(t, "a=1&b=2", OptionsFromRaw("&a=1&b=2&").Fragment())
	})
}

func TestRequestOptions_Idempotent(t *testing.T) {
	paging, _ := NewPagingOptions(5, 10, true)
	opts := NewRequestOptions(paging)

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = opts.Fragment()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "limit=5&skip=10&count=true", r)
	}
	assert.Equal(t, opts.Fragment(), opts.String())
}

func TestRequestOptions_With(t *testing.T) {
	paging, _ := NewPagingOptions(5, 0, false)
	fn, _ := NewServerFunction("f1")
	base := NewRequestOptions(paging)

	withFn := base.WithFunction(fn)
	assert.Equal(t, "limit=5&skip=0&count=false", base.Fragment(), "receiver unchanged")
	assert.Equal(t, "limit=5&skip=0&count=false&f=f1&result_only=false", withFn.Fragment())
	assert.Equal(t, "f1", withFn.Function().Name())

	var nilOpts *RequestOptions
	assert.Equal(t, "f=f1&result_only=false", nilOpts.WithFunction(fn).Fragment())

	sort, _ := NewSortOptions("a", Descending)
	assert.Equal(t, "sort=a:desc&shared=true",
		NoOptions.WithSort(sort).WithShared(NewSharedDataOptions(true, false)).Fragment())
	assert.Equal(t, "limit=5&skip=0&count=false", NoOptions.WithPaging(paging).Fragment())
}
