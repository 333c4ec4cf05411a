package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_QuerySpot(t *testing.T) {
	cfg := writeConfig(t)

	out := new(bytes.Buffer)

	err := run([]string{"opal", "--config", cfg, "query-spot",
		"--stock", "IBM", "--time", "2017-07-03T10:15:30Z"}, out)
	require.NoError(t, err)
	require.Equal(t, "300.00 USD\n", out.String())

	err = run([]string{"opal", "--config", cfg, "query-spot",
		"--stock", "NOPE", "--time", "2017-07-03T10:15:30Z"}, out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown stock")

	err = run([]string{"opal", "--config", cfg, "query-spot",
		"--stock", "IBM", "--time", "yesterday"}, out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid time")
}

func TestRun_QueryVol(t *testing.T) {
	cfg := writeConfig(t)

	out := new(bytes.Buffer)

	err := run([]string{"opal", "--config", cfg, "query-vol",
		"--stock", "IBM", "--time", "2017-07-03T10:15:30Z"}, out)
	require.NoError(t, err)
	require.Equal(t, "0.4\n", out.String())
}

func TestRun_Premium(t *testing.T) {
	cfg := writeConfig(t)

	out := new(bytes.Buffer)

	err := run([]string{"opal", "--config", cfg, "premium",
		"--stock", "IBM", "--time", "2017-07-03T10:15:30Z",
		"--strike", "300", "--type", "call"}, out)
	require.NoError(t, err)
	require.NotEmpty(t, out.String())

	err = run([]string{"opal", "--config", cfg, "premium",
		"--stock", "IBM", "--time", "2017-07-03T10:15:30Z",
		"--strike", "lots"}, out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid strike")
}

func TestRun_BadConfig(t *testing.T) {
	out := new(bytes.Buffer)

	err := run([]string{"opal", "--config", "does-not-exist.yml", "query-vol",
		"--stock", "IBM", "--time", "2017-07-03T10:15:30Z"}, out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "couldn't read config")
}

// -----------------------------------------------------------------------------
// Utility functions

// writeConfig prepares the datasets and a configuration pointing at them,
// and returns the configuration path.
func writeConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	spots := filepath.Join(dir, "spots.txt")
	err := os.WriteFile(spots, []byte("IBM 2017-07-03T10:15:30Z = 300\n"), 0600)
	require.NoError(t, err)

	vols := filepath.Join(dir, "vols.txt")
	err = os.WriteFile(vols, []byte("IBM 2017-07-03T10:15:30Z = 0.4\n"), 0600)
	require.NoError(t, err)

	cfg := filepath.Join(dir, "opal.yml")
	content := "oracle:\n" +
		"  spotsFile: " + spots + "\n" +
		"  volsFile: " + vols + "\n" +
		"  currency: USD\n" +
		"keyFile: " + filepath.Join(dir, "private.key") + "\n" +
		"pricing:\n" +
		"  riskFreeRate: 0.01\n" +
		"  timeToExpiry: 1.0\n"

	err = os.WriteFile(cfg, []byte(content), 0600)
	require.NoError(t, err)

	return cfg
}
