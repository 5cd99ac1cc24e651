package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/sameday-crawler/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "produce.csv")

	records := []models.FinalRecord{
		models.PreliminaryRecord{
			Name:     "Organic Bananas, 3 lbs",
			URL:      "https://sameday.costco.com/store/costco/products/57554-organic-bananas",
			ImageURL: "https://cdn.example.com/bananas.jpg",
			Price:    "Current price: $1.99",
		}.Finalize("57554"),
		models.PreliminaryRecord{
			Name:     "Unnamed Product 2",
			URL:      "https://sameday.costco.com/store/costco/products/12-limes",
			ImageURL: models.ImageNotFound,
			Price:    models.PriceNotFound,
		}.Finalize("url-12"),
	}

	require.NoError(t, WriteCSV(path, records))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"name", "id", "url", "image_url", "price"}, rows[0])
	assert.Equal(t, "Organic Bananas, 3 lbs", rows[1][0])
	assert.Equal(t, "57554", rows[1][1])
	assert.Equal(t, []string{"Unnamed Product 2", "url-12", "https://sameday.costco.com/store/costco/products/12-limes", "Image not found", "Price not found"}, rows[2])

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteCSVEmptyKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	require.NoError(t, WriteCSV(path, nil))

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Columns, rows[0])
}

func TestWriteCSVFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the target makes the rename fail.
	target := filepath.Join(dir, "taken")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "keep"), []byte("x"), 0o644))

	err := WriteCSV(target, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrite)
}
