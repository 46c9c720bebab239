package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1 := gen.NewID()
	id2 := gen.NewID()
	require.NotEqual(t, id1, id2)

	parsed, err := goUUID.Parse(id1)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestGeneratorReuse(t *testing.T) {
	t.Parallel()

	gen := New()
	inbound := "0190f5f2-7a3c-7cc1-9a3e-0d1b2c3d4e5f"
	require.Equal(t, inbound, gen.Reuse(inbound))
	require.Equal(t, inbound, gen.Reuse("0190F5F2-7A3C-7CC1-9A3E-0D1B2C3D4E5F"))

	fresh := gen.Reuse("not-a-uuid")
	require.NotEqual(t, "not-a-uuid", fresh)
	_, err := goUUID.Parse(fresh)
	require.NoError(t, err)

	_, err = goUUID.Parse(gen.Reuse(""))
	require.NoError(t, err)
}
