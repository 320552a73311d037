package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/realty/pkg/models"
)

func TestLeadsWorkbook(t *testing.T) {
	created := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC).UnixMilli()
	b, err := LeadsWorkbook([]models.Lead{
		{ID: 7, Name: "Asha", Phone: "98200", Email: "asha@example.com", ProjectTitle: "Green Acres", Source: "website", Created: created},
		{ID: 8, Name: "Ravi", Phone: "98300", Source: "whatsapp", Message: "Call after 6", Created: created},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{leadsSheet}, f.GetSheetList())
	rows, err := f.GetRows(leadsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, leadHeaders, rows[0])
	assert.Equal(t, []string{"7", "2024-03-09 10:30", "Asha", "98200", "asha@example.com", "Green Acres", "website"}, rows[1])
	assert.Equal(t, "Call after 6", rows[2][7])
}

func TestLeadsWorkbook_Empty(t *testing.T) {
	b, err := LeadsWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(leadsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
