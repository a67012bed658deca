package feed

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeFeed(t,
		"1,101.5,0.5,50.75,1609459200000,false,true\n"+
			"2,99.25,1.25,124.06,1609459201000,true,true\n")

	ticks := NewLoader(testLogger()).LoadCSV(path)
	require.Len(t, ticks, 2)

	assert.Equal(t, 101.5, ticks[0].Price)
	assert.Equal(t, 0.5, ticks[0].Size)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), ticks[0].Time)
	assert.True(t, ticks[0].TakerIsBuyer, "buyer_maker false means the taker bought")

	assert.Equal(t, 99.25, ticks[1].Price)
	assert.False(t, ticks[1].TakerIsBuyer, "buyer_maker true means the taker sold")
}

func TestLoadCSVMissingFile(t *testing.T) {
	ticks := NewLoader(testLogger()).LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.NotNil(t, ticks)
	assert.Empty(t, ticks)
}

func TestLoadCSVMalformedRow(t *testing.T) {
	cases := map[string]string{
		"bad price":       "1,abc,0.5,50.75,1609459200000,false,true\n",
		"bad size":        "1,101.5,xyz,50.75,1609459200000,false,true\n",
		"bad time":        "1,101.5,0.5,50.75,notatime,false,true\n",
		"bad buyer flag":  "1,101.5,0.5,50.75,1609459200000,maybe,true\n",
		"too few columns": "1,101.5,0.5\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFeed(t,
				"1,100.0,1.0,100.0,1609459200000,false,true\n"+content)

			// One bad row empties the whole feed.
			ticks := NewLoader(testLogger()).LoadCSV(path)
			require.NotNil(t, ticks)
			assert.Empty(t, ticks)
		})
	}
}

func TestLoadCSVEmptyFile(t *testing.T) {
	path := writeFeed(t, "")
	ticks := NewLoader(testLogger()).LoadCSV(path)
	require.NotNil(t, ticks)
	assert.Empty(t, ticks)
}

func TestLoadCSVSixColumnRow(t *testing.T) {
	// The best_match column is optional.
	path := writeFeed(t, "1,101.5,0.5,50.75,1609459200000,false\n")
	ticks := NewLoader(testLogger()).LoadCSV(path)
	require.Len(t, ticks, 1)
	assert.Equal(t, 101.5, ticks[0].Price)
}
