package oracle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/opal/core/finance"
)

func TestParseRecord(t *testing.T) {
	rec, err := parseRecord("IBM 2017-07-03T10:15:30Z = 300")
	require.NoError(t, err)
	require.Equal(t, "IBM", rec.stock.Name)
	require.Equal(t, time.Date(2017, 7, 3, 10, 15, 30, 0, time.UTC), rec.stock.AtTime)
	require.True(t, rec.value.Equal(decimal.NewFromInt(300)))

	// Stock names may contain spaces.
	rec, err = parseRecord("International Business Machines 2017-07-03T10:15:30Z = 123.45")
	require.NoError(t, err)
	require.Equal(t, "International Business Machines", rec.stock.Name)
	require.True(t, rec.value.Equal(decimal.RequireFromString("123.45")))
}

func TestParseRecord_Malformed(t *testing.T) {
	_, err := parseRecord("IBM 2017-07-03T10:15:30Z 300")
	require.EqualError(t, err,
		`malformed record "IBM 2017-07-03T10:15:30Z 300": missing '='`)

	_, err = parseRecord("IBM = 300")
	require.EqualError(t, err,
		`malformed record "IBM = 300": expected a name and a timestamp`)

	_, err = parseRecord("IBM not-a-time = 300")
	require.Error(t, err)
	require.Contains(t, err.Error(), `malformed record "IBM not-a-time = 300"`)

	_, err = parseRecord("IBM 2017-07-03T10:15:30Z = many")
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed record")
}

func TestLoadRecords(t *testing.T) {
	path := writeDataset(t, "spots.txt",
		"IBM 2017-07-03T10:15:30Z = 300\n\nAAPL 2017-07-03T10:15:30Z = 200\n")

	records, err := loadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	_, err = loadRecords(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "while opening dataset")

	path = writeDataset(t, "bad.txt", "IBM oops\n")
	_, err = loadRecords(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "malformed record")
}

func TestKeyOf(t *testing.T) {
	at := time.Date(2017, 7, 3, 10, 15, 30, 0, time.UTC)

	// Different clock readings of the same instant collide.
	same := keyOf(finance.NewStock("IBM", at.In(time.FixedZone("", 3600))))
	require.Equal(t, keyOf(finance.NewStock("IBM", at)), same)

	require.NotEqual(t,
		keyOf(finance.NewStock("IBM", at)),
		keyOf(finance.NewStock("IBM", at.Add(time.Nanosecond))))
}

// -----------------------------------------------------------------------------
// Utility functions

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)

	err := os.WriteFile(path, []byte(content), 0600)
	require.NoError(t, err)

	return path
}
