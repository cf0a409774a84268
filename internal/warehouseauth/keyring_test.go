package warehouseauth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()
	k := NewKeyringStore("", "")

	require.NoError(t, k.SetToken("https://dbc-1.cloud.databricks.com/", "dapi-1"))

	tok, err := k.Token("dbc-1.cloud.databricks.com")
	require.NoError(t, err)
	assert.Equal(t, "dapi-1", tok)

	require.NoError(t, k.DeleteToken("dbc-1.cloud.databricks.com"))
	_, err = k.Token("dbc-1.cloud.databricks.com")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestFallbackFileWhenKeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: secret service not available"))
	path := filepath.Join(t.TempDir(), "secrets", "tokens.json")
	k := NewKeyringStore("galactic-test", path)

	require.NoError(t, k.SetToken("dbc-2", "dapi-2"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := k.Token("dbc-2")
	require.NoError(t, err)
	assert.Equal(t, "dapi-2", tok)

	require.NoError(t, k.DeleteToken("dbc-2"))
	_, err = k.Token("dbc-2")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestUnavailableWithoutFallbackFails(t *testing.T) {
	keyring.MockInitWithError(errors.New("dbus: secret service not available"))
	k := NewKeyringStore("galactic-test", "")
	assert.Error(t, k.SetToken("dbc-3", "dapi-3"))
}

func TestResolvePrefersConfigured(t *testing.T) {
	keyring.MockInit()
	k := NewKeyringStore("", "")
	require.NoError(t, k.SetToken("dbc-4", "stored"))

	tok, err := k.Resolve("  from-env ", "dbc-4")
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)

	tok, err = k.Resolve("", "dbc-4")
	require.NoError(t, err)
	assert.Equal(t, "stored", tok)
}

func TestSetTokenValidates(t *testing.T) {
	keyring.MockInit()
	k := NewKeyringStore("", "")
	assert.Error(t, k.SetToken("", "x"))
	assert.Error(t, k.SetToken("host", " "))
}
