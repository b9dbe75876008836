package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/surakshasphere/sentinel/internal/config"
	"github.com/surakshasphere/sentinel/internal/domain/safety"
	"github.com/surakshasphere/sentinel/internal/geo"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))

	s, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, s)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns equal settings.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "runtime.json")
	repo := NewFileRepository(file)

	want := &config.Settings{
		SafeZone: &geo.Zone{
			Name:         "home",
			Center:       geo.Coordinate{Latitude: 12.9716, Longitude: 77.5946},
			RadiusMeters: 500,
		},
		RedZones: []geo.Zone{
			{Name: "underpass", Center: geo.Coordinate{Latitude: 12.97, Longitude: 77.6}, RadiusMeters: 200},
		},
		Contacts: []safety.Contact{
			{Name: "Mom", Number: "+911234567890"},
		},
		SirenEnabled: true,
		ShakeEnabled: false,
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = os.Stat(file)
	require.NoError(t, err)
}
