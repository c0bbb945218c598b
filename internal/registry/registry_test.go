package registry_test

import (
	"testing"

	"github.com/sammcj/mcp-office/internal/registry"
	"github.com/sammcj/mcp-office/tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := registry.New(testutils.CreateTestLogger())

	require.NoError(t, reg.Register(testutils.NewMockTool("alpha")))

	tool, ok := reg.Get("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", tool.Definition().Name)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	reg := registry.New(testutils.CreateTestLogger())

	require.NoError(t, reg.Register(testutils.NewMockTool("alpha")))
	err := reg.Register(testutils.NewMockTool("alpha"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	reg := registry.New(testutils.CreateTestLogger())
	assert.Error(t, reg.Register(testutils.NewMockTool("")))
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	reg := registry.New(testutils.CreateTestLogger())
	require.NoError(t, reg.RegisterAll(
		testutils.NewMockTool("zeta"),
		testutils.NewMockTool("alpha"),
		testutils.NewMockTool("mid"),
	))

	first := reg.List()
	second := reg.List()
	require.Len(t, first, 3)
	assert.Equal(t, "zeta", first[0].Name)
	assert.Equal(t, "alpha", first[1].Name)
	assert.Equal(t, "mid", first[2].Name)
	assert.Equal(t, first, second)

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())
}

func TestRegistry_DisabledToolsAreSkipped(t *testing.T) {
	reg := registry.New(testutils.CreateTestLogger(), registry.ParseDisabled(" beta , ,gamma")...)

	require.NoError(t, reg.Register(testutils.NewMockTool("alpha")))
	require.NoError(t, reg.Register(testutils.NewMockTool("beta")))

	_, ok := reg.Get("beta")
	assert.False(t, ok)
	assert.True(t, reg.IsDisabled("gamma"))
	assert.Equal(t, 1, reg.Len())
}

func TestParseDisabled(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "create_excel", []string{"create_excel"}},
		{"spaces and blanks", " a, ,b ,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, registry.ParseDisabled(tt.input))
		})
	}
}
