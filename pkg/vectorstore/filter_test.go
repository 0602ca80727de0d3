package vectorstore

import (
	"testing"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter_Empty(t *testing.T) {
	f, err := ParseFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestParseFilter_Eq(t *testing.T) {
	f, err := ParseFilter(`fileExtension == ".go"`)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "fileExtension", f.Field)
	assert.Equal(t, "==", f.Op)
	assert.Equal(t, []string{".go"}, f.Values)
}

func TestParseFilter_EqSingleQuoted(t *testing.T) {
	f, err := ParseFilter(`id == 'chunk-1'`)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, []string{"chunk-1"}, f.Values)
}

func TestParseFilter_In(t *testing.T) {
	f, err := ParseFilter(`fileExtension in [".go", ".py"]`)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "fileExtension", f.Field)
	assert.Equal(t, "in", f.Op)
	assert.Equal(t, []string{".go", ".py"}, f.Values)
}

func TestParseFilter_Malformed(t *testing.T) {
	cases := []string{
		"fileExtension",
		"fileExtension ==",
		"fileExtension == unquoted",
		"fileExtension in [unquoted]",
		"fileExtension in [.go",
		"== \"x\"",
	}
	for _, expr := range cases {
		_, err := ParseFilter(expr)
		require.Error(t, err, expr)
		assert.True(t, appErrors.IsKind(err, appErrors.KindUnsupportedFilter), expr)
	}
}

func TestFilter_Matches(t *testing.T) {
	doc := Document{ID: "a1", RelativePath: "pkg/foo.go", FileExtension: ".go"}

	eq, err := ParseFilter(`fileExtension == ".go"`)
	require.NoError(t, err)
	assert.True(t, eq.Matches(doc))

	eqMiss, err := ParseFilter(`fileExtension == ".py"`)
	require.NoError(t, err)
	assert.False(t, eqMiss.Matches(doc))

	in, err := ParseFilter(`fileExtension in [".py", ".go"]`)
	require.NoError(t, err)
	assert.True(t, in.Matches(doc))

	unknownField, err := ParseFilter(`nonsense == "x"`)
	require.NoError(t, err)
	assert.False(t, unknownField.Matches(doc))
}

func TestFilter_Matches_NilMatchesEverything(t *testing.T) {
	var f *Filter
	assert.True(t, f.Matches(Document{}))
}
