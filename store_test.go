package barrel

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dir
}

func TestOpenOnMissingDirCreatesEmptyStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist-yet")
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get("x")
	require.NoError(t, err)
	require.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "1.log", entries[0].Name())
}

func TestSetThenGet(t *testing.T) {
	s, dir := openTestStore(t)
	require.NoError(t, s.Set("k", "v"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err = s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestOverwritePersistsLatestValue(t *testing.T) {
	s, dir := openTestStore(t)
	require.NoError(t, s.Set("k", "a"))
	require.NoError(t, s.Set("k", "b"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", v)

	require.NoError(t, s.Close())
	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err = s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestRemoveThenGetIsEmptyAndSecondRemoveFails(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Remove("k"))

	_, ok, err := s.Get("k")
	require.NoError(t, err)
	require.False(t, ok)

	err = s.Remove("k")
	require.Error(t, err)
}

func TestRemoveOnAbsentKeyFailsWithoutWriting(t *testing.T) {
	s, _ := openTestStore(t)
	before := s.writer.Pos()

	err := s.Remove("never-set")
	require.Error(t, err)
	require.Equal(t, before, s.writer.Pos())
}

func TestSetRejectsEmptyKey(t *testing.T) {
	s, _ := openTestStore(t)
	require.Error(t, s.Set("", "v"))
}

func TestCompactionTriggersAndPreservesLatestValues(t *testing.T) {
	s, dir := openTestStore(t, WithCompactionThreshold(128))

	for i := 0; i < 200; i++ {
		key := fmt.Sprintf("key%d", i)
		require.NoError(t, s.Set(key, fmt.Sprintf("val%d", i)))
		require.NoError(t, s.Set(key, fmt.Sprintf("val2%d", i)))
	}

	for i := 0; i < 200; i++ {
		v, ok, err := s.Get(fmt.Sprintf("key%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("val2%d", i), v)
	}

	// Exactly two files should remain: the compaction target and the
	// rotated writer's generation.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.NoError(t, s.Close())
	s2, err := Open(dir, WithCompactionThreshold(128))
	require.NoError(t, err)
	defer s2.Close()

	for i := 0; i < 200; i++ {
		v, ok, err := s2.Get(fmt.Sprintf("key%d", i))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("val2%d", i), v)
	}
}

func TestGenerationNumbersAreMonotonic(t *testing.T) {
	s, dir := openTestStore(t, WithCompactionThreshold(64))
	firstGen := s.currentGen

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Set("k", "somewhat-longer-value-to-force-compaction"))
	}
	require.Greater(t, s.currentGen, firstGen)

	require.NoError(t, s.Close())
	s2, err := Open(dir, WithCompactionThreshold(64))
	require.NoError(t, err)
	defer s2.Close()
	require.Greater(t, s2.currentGen, s.currentGen)
}

func TestStatsReflectsKeysAndGenerations(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))

	stats := s.Stats()
	require.Equal(t, 2, stats.Keys)
	require.GreaterOrEqual(t, stats.Generations, 1)
}

func TestWithLockPreventsSecondOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(dir)
	require.Error(t, err)
}

func TestWithLockDisabledAllowsSecondOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, WithLock(false))
	require.NoError(t, err)
	defer s.Close()

	s2, err := Open(dir, WithLock(false))
	require.NoError(t, err)
	defer s2.Close()
}
