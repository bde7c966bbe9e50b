package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tamarajafar/NeuroMeta/domain/core"
	"github.com/tamarajafar/NeuroMeta/domain/study"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foci.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadStudiesCSV(t *testing.T) {
	path := writeCSV(t, `study,x,y,z,n
Smith 2009,-38,-44,48,12
Smith 2009,36,-40,44,12
Jones 2011,-2.5,50,10,20
`)
	studies, err := NewFociReader(path).ReadStudies(context.Background())
	require.NoError(t, err)
	require.Len(t, studies, 2)

	assert.Equal(t, "Smith 2009", studies[0].Name)
	assert.Equal(t, 12, studies[0].SampleSize)
	assert.Equal(t, []study.Focus{{X: -38, Y: -44, Z: 48}, {X: 36, Y: -40, Z: 44}}, studies[0].Foci)

	assert.Equal(t, "Jones 2011", studies[1].Name)
	assert.Equal(t, 20, studies[1].SampleSize)
	assert.Equal(t, []study.Focus{{X: -2.5, Y: 50, Z: 10}}, studies[1].Foci)
}

func TestReadStudiesCSVSkipsBlankRows(t *testing.T) {
	path := writeCSV(t, "study,x,y,z,n\nA,0,0,0,8\n,,,,\nA,1,1,1,8\n")
	studies, err := NewFociReader(path).ReadStudies(context.Background())
	require.NoError(t, err)
	require.Len(t, studies, 1)
	assert.Len(t, studies[0].Foci, 2)
}

func TestReadStudiesCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing column", "study,x,y,n\nA,0,0,8\n"},
		{"header only", "study,x,y,z,n\n"},
		{"bad coordinate", "study,x,y,z,n\nA,zero,0,0,8\n"},
		{"bad sample size", "study,x,y,z,n\nA,0,0,0,8.5\n"},
		{"conflicting sample size", "study,x,y,z,n\nA,0,0,0,8\nA,1,1,1,9\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCSV(t, tt.content)
			_, err := NewFociReader(path).ReadStudies(context.Background())
			assert.True(t, errors.Is(err, core.ErrMalformedFociTable), "got %v", err)
		})
	}
}

func TestReadStudiesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foci.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"study", "x", "y", "z", "n"},
		{"Smith 2009", -38, -44, 48, 12},
		{"Smith 2009", 36, -40, 44, 12},
		{"Jones 2011", -2.5, 50, 10, 20},
	}
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, axis, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	studies, err := NewFociReader(path).ReadStudies(context.Background())
	require.NoError(t, err)
	require.Len(t, studies, 2)
	assert.Equal(t, "Smith 2009", studies[0].Name)
	assert.Len(t, studies[0].Foci, 2)
	assert.Equal(t, 20, studies[1].SampleSize)
}

func TestReadStudiesMissingFile(t *testing.T) {
	_, err := NewFociReader("/nonexistent/foci.csv").ReadStudies(context.Background())
	assert.Error(t, err)
}

func TestHeaderIndexCaseInsensitive(t *testing.T) {
	cols, err := headerIndex([]string{" Study ", "X", "Y", "Z", "N"})
	require.NoError(t, err)
	for i, want := range []string{"study", "x", "y", "z", "n"} {
		assert.Equal(t, i, cols[want], fmt.Sprintf("column %q", want))
	}
}
