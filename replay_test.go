package barrel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeGeneration creates gen's log file from raw commands, for replay
// tests that want control over the exact byte layout without going
// through Store.Set.
func writeGeneration(t *testing.T, dir string, gen uint64, cmds ...command) {
	t.Helper()
	var buf bytes.Buffer
	for _, c := range cmds {
		require.NoError(t, encodeCommand(&buf, c))
	}
	require.NoError(t, os.WriteFile(logPath(dir, gen), buf.Bytes(), 0o644))
}

func openGenReader(t *testing.T, dir string, gen uint64) *posReader {
	t.Helper()
	f, err := os.Open(logPath(dir, gen))
	require.NoError(t, err)
	r, err := newPosReader(f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestLoadGenerationIndexesLatestSetPerKey(t *testing.T) {
	dir := t.TempDir()
	writeGeneration(t, dir, 1,
		setCommand("k", "v1"),
		setCommand("k", "v2"),
	)
	r := openGenReader(t, dir, 1)
	index := make(map[string]cmdPos)

	uncompacted, err := loadGeneration(1, r, index)
	require.NoError(t, err)
	require.Positive(t, uncompacted) // the superseded v1 record is dead weight

	pos, ok := index["k"]
	require.True(t, ok)
	require.Equal(t, uint64(1), pos.gen)
}

func TestLoadGenerationDeletesRemovedKeysAndChargesTombstone(t *testing.T) {
	dir := t.TempDir()
	writeGeneration(t, dir, 1,
		setCommand("k", "v1"),
		removeCommand("k"),
	)
	r := openGenReader(t, dir, 1)
	index := make(map[string]cmdPos)

	uncompacted, err := loadGeneration(1, r, index)
	require.NoError(t, err)
	_, ok := index["k"]
	require.False(t, ok)
	// Both the superseded Set and the Remove record itself are dead.
	require.Positive(t, uncompacted)
}

func TestLoadGenerationOnEmptyFileIsNoOp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.log"), nil, 0o644))
	r := openGenReader(t, dir, 1)
	index := make(map[string]cmdPos)

	uncompacted, err := loadGeneration(1, r, index)
	require.NoError(t, err)
	require.Zero(t, uncompacted)
	require.Empty(t, index)
}

func TestLoadGenerationRejectsTruncatedTrailingRecord(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, encodeCommand(&buf, setCommand("k", "v")))
	good := buf.Bytes()
	// Truncate mid-record to simulate a crash between the OS accepting
	// bytes and the write completing.
	truncated := good[:len(good)-3]
	require.NoError(t, os.WriteFile(logPath(dir, 1), truncated, 0o644))

	r := openGenReader(t, dir, 1)
	index := make(map[string]cmdPos)
	_, err := loadGeneration(1, r, index)
	require.Error(t, err)
}
