package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "waylab.ini", `
# core settings
[core]
backend=headless
idle-time=300

[output]
width=640
height=480
scale=1.5
transparent=true
background-color=0xff002244
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "headless", cfg.String("core", "backend", "drm"))
	assert.Equal(t, "fallback", cfg.String("core", "missing", "fallback"))

	w, err := cfg.Int("output", "width", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(640), w)

	idle, err := cfg.Uint("core", "idle-time", 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), idle)

	scale, err := cfg.Double("output", "scale", 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, scale)

	b, err := cfg.Bool("output", "transparent", false)
	require.NoError(t, err)
	assert.True(t, b)

	col, err := cfg.Color("output", "background-color", 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xff002244), col)
}

func TestMissingKeysFallBackWithoutError(t *testing.T) {
	cfg := New()

	n, err := cfg.Int("output", "width", 320)
	require.NoError(t, err)
	assert.Equal(t, int32(320), n)

	b, err := cfg.Bool("core", "flag", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestInvalidValues(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "waylab.ini", `
[bad]
int=notanumber
bool=yes
huge=99999999999999999999
wide=4294967296
color=12345
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	_, err = cfg.Int("bad", "int", 0)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = cfg.Bool("bad", "bool", false)
	assert.ErrorIs(t, err, ErrInvalid, "only true/false parse")

	_, err = cfg.Int("bad", "huge", 0)
	assert.ErrorIs(t, err, ErrRange)

	_, err = cfg.Uint("bad", "wide", 0)
	assert.ErrorIs(t, err, ErrRange)

	_, err = cfg.Color("bad", "color", 0)
	assert.ErrorIs(t, err, ErrInvalid, "colors are 8 hex digits or 0x-prefixed")
}

func TestColorForms(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "waylab.ini", `
[colors]
zero=0
bare=ff336699
prefixed=0XFF336699
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	for _, key := range []string{"bare", "prefixed"} {
		col, err := cfg.Color("colors", key, 0)
		require.NoError(t, err, key)
		assert.Equal(t, uint32(0xff336699), col, key)
	}
	col, err := cfg.Color("colors", "zero", 7)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), col)
}

func TestExplicitMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.ini"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFragmentsMergeInOrder(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "waylab.ini", `
[core]
backend=headless
renderer=noop
`)
	fragDir := p + ".d"
	require.NoError(t, os.Mkdir(fragDir, 0o755))
	writeConfig(t, fragDir, "10-renderer.ini", "[core]\nrenderer=pixman\n")
	writeConfig(t, fragDir, "20-extra.ini", "[shell]\nname=test\n")
	writeConfig(t, fragDir, "ignored.txt", "[core]\nrenderer=gl\n")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "headless", cfg.String("core", "backend", ""))
	assert.Equal(t, "pixman", cfg.String("core", "renderer", ""),
		"later fragment overrides the base file")
	assert.Equal(t, "test", cfg.String("shell", "name", ""))
}

func TestEnvOverrideWins(t *testing.T) {
	dir := t.TempDir()
	p := writeConfig(t, dir, "override.ini", "[core]\nbackend=override\n")
	t.Setenv("WAYLAB_CONFIG", p)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("WAYLAB_CONFIG_DIRS", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.String("core", "backend", ""))
}

func TestSearchFallsBackToEmptyConfig(t *testing.T) {
	t.Setenv("WAYLAB_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("WAYLAB_CONFIG_DIRS", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "def", cfg.String("core", "backend", "def"))
}
