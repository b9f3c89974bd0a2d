package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.30")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 1, Minor: 30}, v)
	assert.Equal(t, "1.30", v.String())

	for _, bad := range []string{"1", "1.30.1", "v1.30", "1.x", ""} {
		_, err := ParseVersion(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, bad)
	}
}

func TestParseLooseVersion(t *testing.T) {
	tests := map[string]Version{
		"v1.29.3-eks-ae9a62a": {1, 29},
		"1.28":                {1, 28},
		"v1.30.0":             {1, 30},
		"1.27+":               {1, 27},
	}
	for in, want := range tests {
		got, err := ParseLooseVersion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLooseVersion("latest")
	assert.Error(t, err)
}

func TestVersion_Compare(t *testing.T) {
	assert.Equal(t, -1, Version{1, 29}.Compare(Version{1, 30}))
	assert.Equal(t, 0, Version{1, 30}.Compare(Version{1, 30}))
	assert.Equal(t, 1, Version{2, 0}.Compare(Version{1, 30}))
	assert.Equal(t, 2, Version{1, 28}.MinorsBehind(Version{1, 30}))
	assert.Equal(t, -1, Version{1, 31}.MinorsBehind(Version{1, 30}))
}
