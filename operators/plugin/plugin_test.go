package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saf-project/saf/operators/plugin"
)

func TestStartFailsWhenCommandDoesNotExist(t *testing.T) {
	c := plugin.NewClient(nil)
	err := c.Start("saf-nonexistent-plugin-binary")
	require.Error(t, err)
}

func TestStartFailsWhenProcessExitsWithoutAnnouncingSocket(t *testing.T) {
	c := plugin.NewClient(nil)
	// `true` exits immediately without writing anything to stdout, so the
	// scanner never sees a socket path line.
	err := c.Start("true")
	require.Error(t, err)
}
