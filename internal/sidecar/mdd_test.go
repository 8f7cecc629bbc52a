package sidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	require.Equal(t, []byte("image/cat.png"), NormalizeKey([]byte(`\image\cat.png`)))
	require.Equal(t, []byte("image/cat.png"), NormalizeKey([]byte(`image\cat.png`)))
	require.Equal(t, []byte("image/cat.png"), NormalizeKey([]byte("image/cat.png")))
}

func TestCachePath(t *testing.T) {
	require.Equal(t, filepath.Join("dicts", "hello.db"), CachePath(filepath.Join("dicts", "hello.mdx")))
}

func TestDiscoverStopsAtFirstGap(t *testing.T) {
	dir := t.TempDir()
	mdx := filepath.Join(dir, "hello.mdx")

	touch := func(name string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	require.Nil(t, Discover(mdx), "no .mdd present")

	touch("hello.mdd")
	touch("hello.1.mdd")
	touch("hello.3.mdd") // unreachable: probing stops at the missing .2

	got := Discover(mdx)
	require.Equal(t, []string{
		filepath.Join(dir, "hello.mdd"),
		filepath.Join(dir, "hello.1.mdd"),
	}, got)
}
