package seeddb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeWithEmptyInputIsDequeuedFirst(t *testing.T) {
	db := New()
	db.InitializeWithEmptyInput()
	db.Add(&Seed{Fingerprint: "other", Energy: 0})

	seed := db.Next()
	require.Equal(t, InitialStateFingerprint, seed.Fingerprint)
}

func TestAddRejectsDuplicateFingerprint(t *testing.T) {
	db := New()
	require.True(t, db.Add(&Seed{Fingerprint: "EEEE", Energy: 5}))
	require.False(t, db.Add(&Seed{Fingerprint: "EEEE", Energy: 1}))
	require.Equal(t, 1, db.Count())
}

func TestNextPrioritizesLowerEnergy(t *testing.T) {
	db := New()
	db.Add(&Seed{Fingerprint: "a", Energy: 10})
	db.Add(&Seed{Fingerprint: "b", Energy: 3})
	db.Add(&Seed{Fingerprint: "c", Energy: 7})

	first := db.Next()
	require.Equal(t, "b", first.Fingerprint)
}

func TestNextTieBreaksOnGeneration(t *testing.T) {
	db := New()
	db.Add(&Seed{Fingerprint: "a", Energy: 5, Generation: 2})
	db.Add(&Seed{Fingerprint: "b", Energy: 5, Generation: 0})

	first := db.Next()
	require.Equal(t, "b", first.Fingerprint)
}

func TestNextIncrementsGenerationAndReadmits(t *testing.T) {
	db := New()
	db.Add(&Seed{Fingerprint: "a", Energy: 1})

	first := db.Next()
	require.Equal(t, 1, first.Generation)
	require.False(t, db.IsEmpty(), "seed should be retained forever, not consumed")

	second := db.Next()
	require.Equal(t, "a", second.Fingerprint)
	require.Equal(t, 2, second.Generation)
}

func TestIsEmptyOnFreshDB(t *testing.T) {
	db := New()
	require.True(t, db.IsEmpty())
	require.Nil(t, db.Next())
}
