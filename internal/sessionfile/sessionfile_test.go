package sessionfile

import (
	"os"
	"path/filepath"
	"testing"

	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/cookies"

	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json5")
	session := eams.Session{
		StudentID:     "2023533000",
		Cookies:       cookies.Set{"CASTGC": "TGT-1", "JSESSIONID": "abc"},
		Authenticated: true,
	}
	require.NoError(t, Save(path, session))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, session, loaded)

	require.NoError(t, Remove(path))
	require.NoError(t, Remove(path))
	_, err = Load(path)
	require.ErrorIs(t, err, eams.ErrSessionExpired)
}

func TestLoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json5")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err := Load(path)
	require.Error(t, err)
	require.NotErrorIs(t, err, eams.ErrSessionExpired)
}
