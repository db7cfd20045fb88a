package architecture_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/license-engine/architecture"
	"github.com/warp/license-engine/license"
)

func TestLoadJSON_NestedForm(t *testing.T) {
	table, err := architecture.LoadJSON(strings.NewReader(`{
		"CSR 1KV APPX 2500M": {"architecture_1": "Routing", "architecture_2": "Virtual"},
		"ASAv30": {"architecture_1": "Security"}
	}`))

	require.NoError(t, err)
	assert.Equal(t, license.MapTable{"CSR 1KV APPX 2500M": "Routing", "ASAv30": "Security"}, table)
}

func TestLoadJSON_FlatForm(t *testing.T) {
	table, err := architecture.LoadJSON(strings.NewReader(`{"ASAv30": "Security"}`))

	require.NoError(t, err)
	category, ok := table.Architecture("ASAv30")
	assert.True(t, ok)
	assert.Equal(t, "Security", category)
}

func TestLoadJSON_Invalid(t *testing.T) {
	cases := map[string]string{
		"not an object":       `[1, 2]`,
		"missing primary key": `{"ASAv30": {"architecture_2": "x"}}`,
		"wrong value type":    `{"ASAv30": 42}`,
		"truncated":           `{"ASAv30": `,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := architecture.LoadJSON(strings.NewReader(raw))
			assert.ErrorIs(t, err, architecture.ErrInvalidTable)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	table, err := architecture.LoadYAML(strings.NewReader(`
architectures:
  - license: CSR 1KV APPX 2500M
    architecture: Routing
  - license: ASAv30
    architecture: Security
`))

	require.NoError(t, err)
	assert.Equal(t, license.MapTable{"CSR 1KV APPX 2500M": "Routing", "ASAv30": "Security"}, table)
}

func TestLoadYAML_EmptyFile_EmptyTable(t *testing.T) {
	table, err := architecture.LoadYAML(strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestLoadYAML_EntryWithoutLicense(t *testing.T) {
	_, err := architecture.LoadYAML(strings.NewReader("architectures:\n  - architecture: Routing\n"))

	assert.ErrorIs(t, err, architecture.ErrInvalidTable)
}

func TestLoadFile_DispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "table.yml")
	jsonPath := filepath.Join(dir, "table.json")
	require.NoError(t, os.WriteFile(yamlPath, []byte("architectures:\n  - {license: A, architecture: Routing}\n"), 0o600))
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"B": {"architecture_1": "Security"}}`), 0o600))

	fromYAML, err := architecture.LoadFile(yamlPath)
	require.NoError(t, err)
	fromJSON, err := architecture.LoadFile(jsonPath)
	require.NoError(t, err)

	assert.Equal(t, license.MapTable{"A": "Routing"}, fromYAML)
	assert.Equal(t, license.MapTable{"B": "Security"}, fromJSON)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := architecture.LoadFile(filepath.Join(t.TempDir(), "nope.json"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}
