package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreshold(t *testing.T) {
	for input, want := range map[string]int{"0": 0, "3": 3, " 12 ": 12, "256": 256} {
		got, err := ParseThreshold(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	for _, input := range []string{"", "-1", "0.8", "257", "many"} {
		_, err := ParseThreshold(input)
		assert.Error(t, err, input)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "Pictures", "Trash"), ExpandHome("~/Pictures/Trash"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "./Trash", ExpandHome("./Trash"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "1.5 KiB", FormatSize(1536))
	assert.Equal(t, "0 B", FormatSize(-4))
}

func TestPluralS(t *testing.T) {
	assert.Equal(t, "", PluralS(1))
	assert.Equal(t, "s", PluralS(0))
	assert.Equal(t, "s", PluralS(2))
}
