package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const latchScenario = `name: latch
design: register
clocks:
  - signal: clk_i
    period: 10ns
stimulus:
  clock: clk_i
  entries:
    - signal: d
      value: 90
      offset: 1
monitors:
  - clock: clk_i
    signals: [q]
run:
  clock: clk_i
  cycles: 2
assertions:
  - type: value_at
    signal: q
    clock: clk_i
    index: 2
    value: 90
`

const failingScenario = `name: wrong_value
design: register
clocks:
  - signal: clk_i
    period: 10ns
stimulus:
  clock: clk_i
  entries:
    - signal: d
      value: 90
      offset: 1
monitors:
  - clock: clk_i
    signals: [q]
run:
  clock: clk_i
  cycles: 2
assertions:
  - type: value_at
    signal: q
    clock: clk_i
    index: 2
    value: 91
`

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// executeCmd runs a single subcommand with stdout and stderr captured
// separately.
func executeCmd(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
