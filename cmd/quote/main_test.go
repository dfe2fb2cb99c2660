package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"upgrade-service/internal/upgrade"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogCSV = `id,kind,size,label,price,applicability,gen_min,gen_max,active,display_order
1,ram,16GB,16GB DDR4,4000,ddr4,,,true,
2,ram,32GB,32GB DDR4,9000,ddr4,,,true,
3,ram,64GB,64GB DDR4,20000,all,10,,true,
10,ssd,512GB,512GB,3000,laptop,,,true,
11,storage,1TB,1TB,6500,all,,,true,
`

const productJSON = `{
  "id": 7,
  "kind": "laptop",
  "ram": "8GB DDR4",
  "storage": "256GB SSD",
  "processor": "Intel Core i5 8th Gen",
  "price": 40000,
  "price_overrides": {"ram-2": 8500}
}`

func writeFixtures(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	catalog := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(catalog, []byte(catalogCSV), 0o600))

	product := filepath.Join(dir, "product.json")
	require.NoError(t, os.WriteFile(product, []byte(productJSON), 0o600))

	return catalog, product
}

func runCommand(t *testing.T, args ...string) (quoteOutput, error) {
	t.Helper()
	var out bytes.Buffer

	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{}, args...))

	var result quoteOutput
	if err := cmd.Execute(); err != nil {
		return result, err
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	return result, nil
}

func TestQuoteCommand(t *testing.T) {
	catalog, product := writeFixtures(t)

	out, err := runCommand(t, "--catalog", catalog, "--product", product, "--ram", "2", "--ssd", "11")
	require.NoError(t, err)

	assert.Equal(t, int64(7), out.ProductID)
	assert.Len(t, out.RAMOptions, 2)
	assert.Len(t, out.StorageOptions, 2)
	assert.Empty(t, out.Notices)

	assert.Equal(t, upgrade.StateBothSelected, out.Result.State)
	assert.Equal(t, int64(8500), out.Result.RAMPrice)
	assert.Equal(t, int64(6500), out.Result.StoragePrice)
	assert.Equal(t, int64(55000), out.Result.TotalPrice)
	assert.Equal(t, "1TB SSD", out.Result.StorageLabel)
}

func TestQuoteCommandReportsInapplicableOption(t *testing.T) {
	catalog, product := writeFixtures(t)

	out, err := runCommand(t, "--catalog", catalog, "--product", product, "--ram", "3")
	require.NoError(t, err)

	require.Len(t, out.Notices, 1)
	assert.Equal(t, upgrade.StateIdle, out.Result.State)
	assert.Equal(t, int64(40000), out.Result.TotalPrice)
}

func TestQuoteCommandRequiresFiles(t *testing.T) {
	_, err := runCommand(t)
	assert.Error(t, err)

	_, err = runCommand(t, "--catalog", "missing.csv", "--product", "missing.json")
	assert.Error(t, err)
}
