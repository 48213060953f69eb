package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
architects:
  - id: neutra
    name: Richard Neutra
    birth_year: 1892
styles:
  - id: desert
    name: Desert Modern
houses:
  - id: kaufmann
    slug: kaufmann
    street: 470 W Vista Chino
    city: Palm Springs
    city_std: palm-springs
    state: CA
    year_built: 1946
    estimated_value: 25000000
    architect_id: neutra
    is_valid: true
    styles:
      - style_id: desert
        confidence: 0.9
`

func TestLoadSeedFromFile_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(seedYAML), 0o644))

	data, err := LoadSeedFromFile(yamlPath)
	require.NoError(t, err)
	require.Len(t, data.Houses, 1)
	h := data.Houses[0]
	assert.Equal(t, "kaufmann", h.ID)
	require.NotNil(t, h.YearBuilt)
	assert.Equal(t, 1946, *h.YearBuilt)
	assert.True(t, h.IsValid)
	require.Len(t, h.Styles, 1)
	assert.Equal(t, "desert", h.Styles[0].StyleID)
	require.NotNil(t, data.Architects[0].BirthYear)
	assert.Equal(t, 1892, *data.Architects[0].BirthYear)

	jsonPath := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"styles":[{"id":"googie","name":"Googie"}]}`), 0o644))
	data, err = LoadSeedFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "Googie", data.Styles[0].Name)

	_, err = LoadSeedFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadSeedFromFile_SampleCatalog(t *testing.T) {
	data, err := LoadSeedFromFile(filepath.Join("..", "..", "data", "seed.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, data.Houses)

	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Seed(ctx, data, time.Now()))

	hs, err := s.ListHouses(ctx, HouseQuery{Sort: SortRecent})
	require.NoError(t, err)
	assert.Len(t, hs, len(data.Houses))
	// Houses without timestamps keep file order, first is newest.
	assert.Equal(t, data.Houses[0].ID, hs[0].ID)
}
