package imagestore_test

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/preventa/internal/domain"
	"github.com/jhoicas/preventa/internal/infrastructure/imagestore"
)

const tenant = "12345678000199"

func TestStore_EscrituraEIndice(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := imagestore.New(fs, "/img")

	idx, err := s.LoadIndex(tenant)
	require.NoError(t, err)
	assert.Empty(t, idx, "sin índice previo")

	assert.False(t, s.Exists(tenant, "P1.jpg"))
	require.NoError(t, s.Write(tenant, "P1.jpg", []byte("jpeg")))
	assert.True(t, s.Exists(tenant, "P1.jpg"))

	data, err := afero.ReadFile(fs, "/img/"+tenant+"/P1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	mod := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveIndex(tenant, map[string]time.Time{"P1.jpg": mod}))
	ok, err := afero.Exists(fs, "/img/"+tenant+".mtimes.json")
	require.NoError(t, err)
	assert.True(t, ok)

	idx, err = s.LoadIndex(tenant)
	require.NoError(t, err)
	assert.True(t, idx["P1.jpg"].Equal(mod))

	// No quedan temporales.
	entries, err := afero.ReadDir(fs, "/img/"+tenant)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "P1.jpg", entries[0].Name())
}

func TestStore_NombreInvalido(t *testing.T) {
	s := imagestore.New(afero.NewMemMapFs(), "/img")
	for _, name := range []string{"", "..", "../x.jpg", `a\b.jpg`} {
		err := s.Write(tenant, name, []byte("x"))
		assert.True(t, domain.IsValidation(err), name)
	}
}

func TestStore_IndiceCorrupto(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/img/"+tenant+".mtimes.json", []byte("{no"), 0o644))
	_, err := imagestore.New(fs, "/img").LoadIndex(tenant)
	assert.Error(t, err)
}
