package blobutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateDummyBlobsCount(t *testing.T) {
	blobs, err := GenerateDummyBlobs(3)
	require.NoError(t, err)
	require.Len(t, blobs, 3)
}

func TestGenerateDummyBlobsZeroOrNegative(t *testing.T) {
	blobs, err := GenerateDummyBlobs(0)
	require.NoError(t, err)
	require.Nil(t, blobs)
}

func TestVersionedHashesMatchesBlobCount(t *testing.T) {
	blobs, err := GenerateDummyBlobs(2)
	require.NoError(t, err)

	hashes, err := VersionedHashes(blobs)
	require.NoError(t, err)
	require.Len(t, hashes, 2)
	require.NotEqual(t, hashes[0], hashes[1])
}

func TestDuplicateFirstHashAppendsCopy(t *testing.T) {
	blobs, err := GenerateDummyBlobs(2)
	require.NoError(t, err)
	hashes, err := VersionedHashes(blobs)
	require.NoError(t, err)

	dup := DuplicateFirstHash(hashes)
	require.Len(t, dup, 3)
	require.Equal(t, hashes[0], dup[2])
}
