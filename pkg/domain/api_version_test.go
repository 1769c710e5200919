package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "muster/pkg/domain-errors"
)

func TestParseVersionHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   APIVersion
		fails  bool
	}{
		{name: "empty negotiates minimum", header: "", want: APIVersion1_0},
		{name: "service-prefixed", header: "clustering 1.14", want: APIVersion1_14},
		{name: "bare version", header: "1.14", want: APIVersion1_14},
		{name: "surrounding whitespace", header: "  clustering 1.0 ", want: APIVersion1_0},
		{name: "intermediate version negotiates as itself", header: "clustering 1.7", want: APIVersion("1.7")},
		{name: "zero-padded minor normalizes", header: "clustering 1.07", want: APIVersion("1.7")},
		{name: "below the supported range", header: "clustering 0.9", fails: true},
		{name: "above the supported range", header: "clustering 1.15", fails: true},
		{name: "unknown version", header: "clustering 9.99", fails: true},
		{name: "garbage", header: "clustering latest", fails: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseVersionHeader(tt.header)
			if tt.fails {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestIsAtLeast(t *testing.T) {
	assert.True(t, APIVersion1_14.IsAtLeast(APIVersion1_0))
	assert.True(t, APIVersion1_14.IsAtLeast(APIVersion1_14))
	assert.False(t, APIVersion1_0.IsAtLeast(APIVersion1_14))
	assert.False(t, APIVersion("").IsAtLeast(APIVersion1_0), "malformed versions rank below all well-formed ones")

	t.Run("minor versions compare numerically", func(t *testing.T) {
		assert.True(t, APIVersion("1.7").IsAtLeast(APIVersion1_0))
		assert.True(t, APIVersion1_14.IsAtLeast(APIVersion("1.7")))
		assert.False(t, APIVersion("1.7").IsAtLeast(APIVersion1_14))
		assert.True(t, APIVersion("2.0").IsAtLeast(APIVersion1_14))
	})
}

func TestCapabilityGates(t *testing.T) {
	t.Run("cluster_id arrives at 1.14", func(t *testing.T) {
		assert.False(t, APIVersion1_0.SupportsFilter("cluster_id"))
		assert.False(t, APIVersion1_0.SupportsField("cluster_id"))
		assert.True(t, APIVersion1_14.SupportsFilter("cluster_id"))
		assert.True(t, APIVersion1_14.SupportsField("cluster_id"))
	})

	t.Run("intermediate versions gate below the capability", func(t *testing.T) {
		assert.False(t, APIVersion("1.7").SupportsFilter("cluster_id"))
		assert.False(t, APIVersion("1.13").SupportsField("cluster_id"))
		assert.True(t, APIVersion("1.7").SupportsFilter("obj_id"))
	})

	t.Run("base filters are always supported", func(t *testing.T) {
		assert.True(t, APIVersion1_0.SupportsFilter("obj_id"))
		assert.True(t, APIVersion1_0.SupportsField("action"))
	})
}

func TestSupportedVersionsOrdering(t *testing.T) {
	versions := SupportedVersions()
	require.NotEmpty(t, versions)
	assert.Equal(t, MinVersion(), versions[0])
	assert.Equal(t, MaxVersion(), versions[len(versions)-1])
	for i := 1; i < len(versions); i++ {
		assert.True(t, versions[i].IsAtLeast(versions[i-1]))
	}
}
