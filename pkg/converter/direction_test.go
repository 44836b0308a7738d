package converter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikitasimonian/openvdb/pkg/converter"
)

func TestResolveDirection(t *testing.T) {
	cases := []struct {
		output string
		want   converter.Direction
	}{
		{"out.nvdb", converter.ToCompact},
		{"dir/sub/out.nvdb", converter.ToCompact},
		{"out.vdb", converter.ToOpen},
		{"a.b.c.vdb", converter.ToOpen},
	}
	for _, tc := range cases {
		got, err := converter.ResolveDirection(tc.output)
		require.NoError(t, err, tc.output)
		assert.Equal(t, tc.want, got, tc.output)
	}
}

func TestResolveDirectionUnknownExtension(t *testing.T) {
	for _, output := range []string{"out.txt", "out", "out.vdbx", "out.nvdb.gz"} {
		_, err := converter.ResolveDirection(output)
		assert.ErrorIs(t, err, converter.ErrUnknownExtension, output)
		assert.True(t, converter.IsUsageError(err), output)
	}
}

func TestDirectionProperties(t *testing.T) {
	assert.Equal(t, ".vdb", converter.ToCompact.InputExt())
	assert.Equal(t, "VDB", converter.ToCompact.SourceFormat())
	assert.Equal(t, "NVDB", converter.ToCompact.TargetFormat())

	assert.Equal(t, ".nvdb", converter.ToOpen.InputExt())
	assert.Equal(t, "NVDB", converter.ToOpen.SourceFormat())
	assert.Equal(t, "VDB", converter.ToOpen.TargetFormat())
}
