package packaging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseIdentity covers the root attribute lookup.
func TestParseIdentity(t *testing.T) {
	t.Parallel()

	uuid, err := parseIdentity(strings.NewReader(`<?xml version="1.0"?><!-- app --><package uuid=" my-app "/>`))
	require.NoError(t, err)
	require.Equal(t, "my-app", uuid)

	// Only the root element counts.
	_, err = parseIdentity(strings.NewReader(`<package><behavior uuid="nested"/></package>`))
	require.ErrorIs(t, err, ErrIdentityMissing)

	_, err = parseIdentity(strings.NewReader(`<package uuid=""/>`))
	require.ErrorIs(t, err, ErrIdentityMissing)

	_, err = parseIdentity(strings.NewReader(``))
	require.Error(t, err)

	_, err = parseIdentity(strings.NewReader(`<package uuid="x"`))
	require.Error(t, err)
}

// TestArchiveNames maps UUIDs to filenames and back.
func TestArchiveNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "my-app.pkg", ArchiveName("my-app"))
	require.Equal(t, "my-app", UUIDFromArchiveName("/tmp/projects/my-app.pkg"))
}
