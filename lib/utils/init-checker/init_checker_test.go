package initchecker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckInit(t *testing.T) {
	t.Run(`all set`, func(t *testing.T) {
		require.NotPanics(t, func() { CheckInit("store", 1, "gate", "x") })
	})
	t.Run(`missing dependency`, func(t *testing.T) {
		var missing error
		require.PanicsWithValue(t, "gate dependency not initialized", func() { CheckInit("store", 1, "gate", missing) })
	})
	t.Run(`odd arguments`, func(t *testing.T) {
		require.Panics(t, func() { CheckInit("store") })
	})
}
