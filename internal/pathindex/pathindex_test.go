package pathindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want []string
	}{
		{name: "empty", url: "", want: nil},
		{name: "scheme_only", url: "https://", want: nil},
		{name: "plain", url: "a/b", want: []string{"a", "b"}},
		{name: "http", url: "http://a/b", want: []string{"a", "b"}},
		{name: "https", url: "https://a/b", want: []string{"a", "b"}},
		{name: "scheme_is_case_sensitive", url: "HTTP://a", want: []string{"HTTP:", "", "a"}},
		{name: "other_scheme_kept", url: "ftp://a", want: []string{"ftp:", "", "a"}},
		{name: "numeric", url: "users/42", want: []string{"users", Wildcard}},
		{name: "signed", url: "n/-3/+7", want: []string{"n", Wildcard, Wildcard}},
		{name: "wide_id", url: "n/123456789012345678901234567890", want: []string{"n", Wildcard}},
		{name: "not_numeric", url: "v1/12a/0x10", want: []string{"v1", "12a", "0x10"}},
		{name: "leading_slash", url: "/a", want: []string{"", "a"}},
		{name: "empty_segment", url: "a//b", want: []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.url))
		})
	}
}

func TestIndexSchemeIsStripped(t *testing.T) {
	t.Parallel()

	ix := New()
	ix.Add("a/b")

	assert.True(t, ix.Excluded("a/b"))
	assert.True(t, ix.Excluded("http://a/b"))
	assert.True(t, ix.Excluded("https://a/b"))

	ix = New()
	ix.Add("https://api/ping")
	assert.True(t, ix.Excluded("api/ping"))
}

func TestIndexWildcard(t *testing.T) {
	t.Parallel()

	ix := New()
	ix.Add("users/:id")

	assert.True(t, ix.Excluded("users/1"))
	assert.True(t, ix.Excluded("users/999"))
	assert.True(t, ix.Excluded("users/:id"))
	assert.False(t, ix.Excluded("users/me"))

	// A numeric rule normalizes too.
	ix = New()
	ix.Add("items/42")
	assert.True(t, ix.Excluded("items/7"))
}

func TestIndexAddIsIdempotent(t *testing.T) {
	t.Parallel()

	once, twice := New(), New()
	once.Add("a/b/c")
	twice.Add("a/b/c")
	twice.Add("a/b/c")

	for _, url := range []string{"a", "a/b", "a/b/c", "a/b/c/d", "x"} {
		assert.Equal(t, once.Excluded(url), twice.Excluded(url), url)
	}
	assert.Equal(t, once.Paths(), twice.Paths())
}

func TestIndexAddRemoveRestores(t *testing.T) {
	t.Parallel()

	urls := []string{"a", "a/b", "orders/55/status", "https://h/x/1/y"}
	for _, url := range urls {
		ix := New()
		before := ix.Excluded(url)
		ix.Add(url)
		require.True(t, ix.Excluded(url), url)
		ix.Remove(url)
		assert.Equal(t, before, ix.Excluded(url), url)
		assert.Empty(t, ix.Paths(), url)
	}
}

func TestIndexOrdersScenario(t *testing.T) {
	t.Parallel()

	ix := New()
	ix.Add("orders/:id/status")

	assert.True(t, ix.Excluded("orders/55/status"))
	assert.False(t, ix.Excluded("orders/55"))
	assert.True(t, ix.Excluded("orders/55/status/extra"))
	assert.False(t, ix.Excluded("orders"))
	assert.False(t, ix.Excluded("orders/55/state"))

	rule, ok := ix.Lookup("orders/55/status/extra")
	require.True(t, ok)
	assert.Equal(t, "orders/:id/status", rule)
}

func TestIndexLongerPathUnexcludesPrefix(t *testing.T) {
	t.Parallel()

	ix := New()
	ix.Add("a/b")
	require.True(t, ix.Excluded("a/b"))

	ix.Add("a/b/c")
	assert.False(t, ix.Excluded("a/b"))
	assert.True(t, ix.Excluded("a/b/c"))

	// Re-adding the prefix does not make a pass-through node a rule again.
	ix.Add("a/b")
	assert.False(t, ix.Excluded("a/b"))
	assert.Equal(t, []string{"a/b/c"}, ix.Paths())
}

func TestIndexPrefixAddKeepsDeeperRule(t *testing.T) {
	t.Parallel()

	ix := New()
	ix.Add("a/b/c")
	ix.Add("a")

	assert.True(t, ix.Excluded("a/b/c"))
	assert.False(t, ix.Excluded("a"))
}

func TestIndexRemove(t *testing.T) {
	t.Parallel()

	t.Run("never_added", func(t *testing.T) {
		t.Parallel()
		ix := New()
		ix.Add("a/b")
		ix.Remove("x/y")
		ix.Remove("a/b/c")
		ix.Remove("")
		assert.Equal(t, []string{"a/b"}, ix.Paths())
	})

	t.Run("prunes_unused_prefix", func(t *testing.T) {
		t.Parallel()
		ix := New()
		ix.Add("x/y/z")
		ix.Remove("x/y/z")
		assert.Empty(t, ix.Paths())
		assert.False(t, ix.Excluded("x"))
		assert.False(t, ix.Excluded("x/y"))
	})

	t.Run("keeps_shared_prefix", func(t *testing.T) {
		t.Parallel()
		ix := New()
		ix.Add("a/b/c")
		ix.Add("a/b/d")
		ix.Remove("a/b/c")
		assert.True(t, ix.Excluded("a/b/d"))
		assert.False(t, ix.Excluded("a/b/c"))
		assert.False(t, ix.Excluded("a/b"))
		assert.Equal(t, []string{"a/b/d"}, ix.Paths())
	})

	t.Run("pass_through_is_noop", func(t *testing.T) {
		t.Parallel()
		ix := New()
		ix.Add("a/b/c")
		ix.Remove("a/b")
		assert.True(t, ix.Excluded("a/b/c"))
	})

	t.Run("wildcard_by_any_id", func(t *testing.T) {
		t.Parallel()
		ix := New()
		ix.Add("users/:id")
		ix.Remove("users/12")
		assert.False(t, ix.Excluded("users/1"))
	})
}

func TestIndexEmptyURL(t *testing.T) {
	t.Parallel()

	ix := New()
	ix.Add("")
	assert.Empty(t, ix.Paths())
	assert.False(t, ix.Excluded(""))

	ix.Add("a")
	assert.False(t, ix.Excluded(""))
}

func TestIndexExplicitTerminals(t *testing.T) {
	t.Parallel()

	ix := New(WithExplicitTerminals())
	ix.Add("a/b")
	ix.Add("a/b/c")

	assert.True(t, ix.Excluded("a/b"))
	assert.True(t, ix.Excluded("a/b/x"))
	assert.False(t, ix.Excluded("a"))
	assert.Equal(t, []string{"a/b", "a/b/c"}, ix.Paths())

	ix.Remove("a/b")
	assert.False(t, ix.Excluded("a/b"))
	assert.True(t, ix.Excluded("a/b/c"))

	ix.Remove("a/b/c")
	assert.Empty(t, ix.Paths())
	assert.Equal(t, 0, ix.Len())
}

func TestIndexExplicitTerminalsKeepsRuleAncestor(t *testing.T) {
	t.Parallel()

	ix := New(WithExplicitTerminals())
	ix.Add("a")
	ix.Add("a/b/c")
	ix.Remove("a/b/c")

	assert.True(t, ix.Excluded("a"))
	assert.Equal(t, []string{"a"}, ix.Paths())
}

func TestIndexPaths(t *testing.T) {
	t.Parallel()

	ix := New()
	ix.Add("https://api/users/42")
	ix.Add("health")
	ix.Add("api/orders/:id/status")

	assert.Equal(t, []string{"api/orders/:id/status", "api/users/:id", "health"}, ix.Paths())
	assert.Equal(t, 3, ix.Len())
}
