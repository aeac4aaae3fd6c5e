package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupConfig writes a config file that keeps every file inside a temp dir.
func setupConfig(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("SAKU_CONFIG", "")
	path := filepath.Join(tmpDir, "config.toml")
	content := "[database]\npath = " + quote(filepath.Join(tmpDir, "saku.db")) + "\n" +
		"[session]\npath = " + quote(filepath.Join(tmpDir, "session.json")) + "\n" +
		"[export]\ndir = " + quote(tmpDir) + "\n" +
		"[log]\nlevel = \"error\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func quote(s string) string { return "'" + s + "'" }

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	err := run(context.Background(), args, bytes.NewBufferString(stdin), stdout, stderr)
	return stdout.String(), err
}

func TestRun_RegisterAndBalance(t *testing.T) {
	cfg := setupConfig(t)

	output, err := runCmd(t, "", "-config", cfg, "register", "-name", "Alice", "-email", "alice@x.com", "-password", "secret1")
	require.NoError(t, err)
	assert.Contains(t, output, "Welcome, Alice")

	// Each run is a fresh process as far as the app is concerned.
	_, err = runCmd(t, "", "-config", cfg, "add", "-type", "income", "-category", "Gaji", "-amount", "1000000", "-date", "2024-05-01")
	require.NoError(t, err)
	_, err = runCmd(t, "", "-config", cfg, "add", "-category", "Makan", "-amount", "50000", "-date", "2024-05-02")
	require.NoError(t, err)

	output, err = runCmd(t, "", "-config", cfg, "balance")
	require.NoError(t, err)
	assert.Contains(t, output, "Rp 950.000")
}

func TestRun_InteractivePassword(t *testing.T) {
	cfg := setupConfig(t)

	// Simulate user typing "interactive_secret" followed by newline
	output, err := runCmd(t, "interactive_secret\n", "-config", cfg, "register", "-name", "Alice", "-email", "alice@x.com")
	require.NoError(t, err)
	assert.Contains(t, output, "Password: ")

	_, err = runCmd(t, "", "-config", cfg, "logout")
	require.NoError(t, err)

	output, err = runCmd(t, "interactive_secret\n", "-config", cfg, "login", "-email", "alice@x.com")
	require.NoError(t, err)
	assert.Contains(t, output, "Logged in as Alice")
}

func TestRun_InteractivePassword_Empty(t *testing.T) {
	cfg := setupConfig(t)

	// Simulate user typing newline (empty password)
	_, err := runCmd(t, "\n", "-config", cfg, "register", "-name", "Alice", "-email", "alice@x.com")
	require.Error(t, err, "expected error for empty password")
	assert.Contains(t, err.Error(), "password")
}

func TestRun_RequiresLogin(t *testing.T) {
	cfg := setupConfig(t)

	_, err := runCmd(t, "", "-config", cfg, "balance")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saku login")
}

func TestRun_DBFlagOverridesConfig(t *testing.T) {
	cfg := setupConfig(t)
	dbPath := filepath.Join(t.TempDir(), "override.db")

	_, err := runCmd(t, "", "-config", cfg, "-db", dbPath, "categories")
	require.NoError(t, err)

	// Verify DB file was created at dbPath
	assert.FileExists(t, dbPath)
}

func TestRun_EnvVarOverride(t *testing.T) {
	cfg := setupConfig(t)
	dbPath := filepath.Join(t.TempDir(), "env.db")
	t.Setenv("SAKU_DATABASE_PATH", dbPath)

	_, err := runCmd(t, "", "-config", cfg, "categories")
	require.NoError(t, err)
	assert.FileExists(t, dbPath)
}

func TestRun_InvalidDBPath(t *testing.T) {
	cfg := setupConfig(t)
	// Use a directory path as DB file path, which should fail
	tmpDir := t.TempDir()

	_, err := runCmd(t, "", "-config", cfg, "-db", tmpDir, "balance")
	require.Error(t, err, "expected error for invalid db path")
	assert.Contains(t, err.Error(), "failed to open database")
}

func TestRun_Usage(t *testing.T) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)

	err := run(context.Background(), nil, new(bytes.Buffer), stdout, stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, stderr.String(), "Usage:")
	assert.Contains(t, stderr.String(), "summary")
}

func TestRun_InvalidFlag(t *testing.T) {
	_, err := runCmd(t, "", "-invalid")
	require.Error(t, err, "expected error for invalid flag")
	assert.Contains(t, err.Error(), "flag provided but not defined")
}
