package version

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), "qidev ")
}

// TestInfo_WithBuildSettings fills only the fields ldflags left unset.
func TestInfo_WithBuildSettings(t *testing.T) {
	t.Parallel()

	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-10-19T08:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	stamped := Info{Version: "0.1.0", Commit: unknownCommit, BuildTime: unknownTime}.withBuildSettings(settings)
	require.Equal(t, "0123456", stamped.Commit)
	require.Equal(t, "2026-10-19T08:00:00Z", stamped.BuildTime)
	require.Equal(t, "qidev 0.1.0 (commit 0123456-dirty, built 2026-10-19T08:00:00Z)", stamped.String())

	flagged := Info{Version: "0.1.0", Commit: "abc1234", BuildTime: "today"}.withBuildSettings(settings)
	require.Equal(t, "abc1234", flagged.Commit)
	require.Equal(t, "today", flagged.BuildTime)

	bare := Info{Version: "0.1.0", Commit: unknownCommit, BuildTime: unknownTime}.withBuildSettings(nil)
	require.Equal(t, "qidev 0.1.0 (commit none, built unknown)", bare.String())
}

// TestAttachCobraVersionCommand prints Full, or Short with --short.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		args []string
		want string
	}{
		{args: []string{"version"}, want: Full() + "\n"},
		{args: []string{"version", "--short"}, want: Short() + "\n"},
	} {
		root := &cobra.Command{Use: "qidev"}
		AttachCobraVersionCommand(root)

		var out bytes.Buffer

		root.SetOut(&out)
		root.SetArgs(tc.args)

		require.NoError(t, root.Execute())
		require.Equal(t, tc.want, out.String())
	}
}
