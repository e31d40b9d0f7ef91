package mysql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringOrDash(t *testing.T) {
	require.Equal(t, "-", stringOrDash("  "))
	require.Equal(t, "Alice", stringOrDash("Alice"))
}

func TestJSONOrWrapped(t *testing.T) {
	require.Equal(t, "{}", jsonOrWrapped(""))
	require.Equal(t, `{"a":1}`, jsonOrWrapped(`{"a":1}`))
	require.Equal(t, `{"raw":"boom"}`, jsonOrWrapped("boom"))
}
