package credentials

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"
)

// TestStore_DefaultPassword returns the factory password when nothing is stored.
func TestStore_DefaultPassword(t *testing.T) {
	t.Parallel()

	store := NewStore(keyring.NewArrayKeyring(nil))

	password, err := store.Password("nao", "nao.local")
	require.NoError(t, err)
	require.Equal(t, DefaultPassword, password)

	var nilStore *Store

	password, err = nilStore.Password("nao", "nao.local")
	require.NoError(t, err)
	require.Equal(t, DefaultPassword, password)
}

// TestStore_SetPassword stores passwords per user and host.
func TestStore_SetPassword(t *testing.T) {
	t.Parallel()

	store := NewStore(keyring.NewArrayKeyring(nil))

	require.NoError(t, store.SetPassword("nao", "pepper.local", "s3cret"))

	password, err := store.Password("nao", "pepper.local")
	require.NoError(t, err)
	require.Equal(t, "s3cret", password)

	password, err = store.Password("nao", "romeo.local")
	require.NoError(t, err)
	require.Equal(t, DefaultPassword, password)
}
