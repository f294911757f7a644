package commands

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/credpool/internal/cipherbox"
	"github.com/ericfisherdev/credpool/internal/config"
	"github.com/ericfisherdev/credpool/internal/domain/port/driven"
)

// newTestApp points the CLI at a fresh database file and a fixed set of
// configured lists.
func newTestApp(t *testing.T, lists config.MapSource) *App {
	t.Helper()
	t.Setenv("CREDPOOL_MASTER_KEY", "cli-test-master-key")
	t.Setenv("CREDPOOL_PROVIDER", "gemini")
	t.Setenv("CREDPOOL_KEY_LIST_PREFIX", "CREDPOOL_API_KEYS")
	t.Setenv("CREDPOOL_RESET_TIMEZONE", "UTC")

	return &App{
		DBPath: filepath.Join(t.TempDir(), "credpool.db"),
		Logger: NewLogger(io.Discard, false),
		Source: lists,
	}
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand(app, "test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportAndOrder(t *testing.T) {
	app := newTestApp(t, config.MapSource{
		"CREDPOOL_API_KEYS_1": "sk-aaaa1111,sk-bbbb2222",
		"CREDPOOL_API_KEYS":   "sk-cccc3333",
	})

	out, err := execute(t, app, "import")
	require.NoError(t, err)
	assert.Equal(t, "imported 3, skipped 0, failed 0\n", out)

	out, err = execute(t, app, "import")
	require.NoError(t, err)
	assert.Equal(t, "imported 0, skipped 3, failed 0\n", out)

	out, err = execute(t, app, "order")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "3. "+cipherbox.Mask("sk-cccc3333"), lines[2])
	assert.ElementsMatch(t,
		[]string{"1. " + cipherbox.Mask("sk-aaaa1111"), "2. " + cipherbox.Mask("sk-bbbb2222")},
		[]string{lines[0], lines[1]},
	)
}

func TestAddListStatusRemove(t *testing.T) {
	app := newTestApp(t, nil)

	out, err := execute(t, app, "add", "sk-live-0001-abcd", "--label", "Account 2")
	require.NoError(t, err)
	assert.Contains(t, out, `added`)
	assert.Contains(t, out, `"Account 2" (gemini)`)
	assert.NotContains(t, out, "sk-live-0001-abcd")

	out, err = execute(t, app, "add", "sk-live-0001-abcd")
	require.NoError(t, err)
	assert.Contains(t, out, "already stored")

	_, err = execute(t, app, "add", "   ")
	require.Error(t, err)

	out, err = execute(t, app, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Account 2")
	assert.Contains(t, out, cipherbox.Mask("sk-live-0001-abcd"))
	assert.NotContains(t, out, "sk-live-0001-abcd")

	out, err = execute(t, app, "status", "1", "exhausted")
	require.NoError(t, err)
	assert.Equal(t, "credential 1 is now exhausted\n", out)

	out, err = execute(t, app, "order")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = execute(t, app, "status", "1", "banned")
	require.Error(t, err)

	out, err = execute(t, app, "remove", "1")
	require.NoError(t, err)
	assert.Equal(t, "removed credential 1\n", out)

	_, err = execute(t, app, "remove", "1")
	require.ErrorIs(t, err, driven.ErrCredentialNotFound)

	_, err = execute(t, app, "remove", "abc")
	require.Error(t, err)
}

func TestStats(t *testing.T) {
	app := newTestApp(t, config.MapSource{"CREDPOOL_API_KEYS": "sk-aaaa1111,sk-bbbb2222"})

	_, err := execute(t, app, "import")
	require.NoError(t, err)

	out, err := execute(t, app, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "ACCOUNT")
	assert.Regexp(t, `Primary Account\s+2\s+2\s+0\s+0`, out)
}

func TestReset(t *testing.T) {
	app := newTestApp(t, nil)

	out, err := execute(t, app, "reset")
	require.NoError(t, err)
	assert.Equal(t, "usage counters reset\n", out)

	out, err = execute(t, app, "reset")
	require.NoError(t, err)
	assert.Equal(t, "already reset today\n", out)
}
