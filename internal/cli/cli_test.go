package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	input := filepath.Join(t.TempDir(), "peaks.csv")
	require.NoError(t, os.WriteFile(input, []byte("Year,Value\n2001,85.4\n2002,142.7\n2003,167.3\n2004,98.6\n2005,178.9\n2006,156.2\n2007,134.8\n2008,201.5\n"), 0o644))

	t.Run("version", func(t *testing.T) {
		out.Reset()
		rootCmd.SetArgs([]string{"version", "--log-level", "error"})
		require.NoError(t, rootCmd.Execute())
		assert.Contains(t, out.String(), "version: dev")
	})

	t.Run("analyze table", func(t *testing.T) {
		out.Reset()
		rootCmd.SetArgs([]string{"analyze", "--input", input, "--station", "G1", "--format", "table", "--return-periods", "2,10"})
		require.NoError(t, rootCmd.Execute())
		text := out.String()
		assert.Contains(t, text, "Stations:")
		assert.Contains(t, text, "G1")
		assert.Contains(t, text, "acceptable")
	})

	t.Run("stations from csv", func(t *testing.T) {
		out.Reset()
		rootCmd.SetArgs([]string{"stations", "--input", input, "--format", "table"})
		require.NoError(t, rootCmd.Execute())
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[1], "input"))
	})

	t.Run("bad format", func(t *testing.T) {
		rootCmd.SetArgs([]string{"analyze", "--input", input, "--format", "xml"})
		assert.Error(t, rootCmd.Execute())
	})
}
