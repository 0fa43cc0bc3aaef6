package heap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	mem := make([]byte, 4096)
	r := FromBytes(mem)

	require.Equal(t, int64(4096), r.Size())
	require.Len(t, r.Bytes(), 4096)
	require.False(t, r.Mapped())
	require.False(t, r.ReadOnly())
	require.NotZero(t, r.Addr())
	require.NoError(t, r.Close())
}

func TestArenaReservesMargin(t *testing.T) {
	r := FromBytes(make([]byte, 4096))

	arena := r.Arena(DefaultSafetyMargin)
	require.Len(t, arena, 4096-DefaultSafetyMargin)
	require.Equal(t, 4096-DefaultSafetyMargin, r.FreeBytes(DefaultSafetyMargin))

	require.Len(t, r.Arena(0), 4096)
}

func TestArenaSmallerThanMargin(t *testing.T) {
	r := FromBytes(make([]byte, 512))

	require.Nil(t, r.Arena(DefaultSafetyMargin))
	require.Zero(t, r.FreeBytes(DefaultSafetyMargin))
	require.Nil(t, r.Arena(-1))
}

func TestAddrEmptyRegion(t *testing.T) {
	require.Zero(t, FromBytes(nil).Addr())
	var r *Region
	require.Zero(t, r.Addr())
}

func TestCheckRange(t *testing.T) {
	r := FromBytes(make([]byte, 64))

	require.NoError(t, r.checkRange(0, 64))
	require.NoError(t, r.checkRange(60, 4))
	require.Error(t, r.checkRange(60, 8))
	require.Error(t, r.checkRange(-1, 1))

	require.NoError(t, r.Close())
	require.ErrorIs(t, r.checkRange(0, 1), ErrClosed)
}
