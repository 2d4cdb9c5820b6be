package normalize

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"eradata/internal/csvio"
	"eradata/internal/models"
)

const sampleInput = "year,state,state_po,county_name,county_fips,office,candidate,party,candidatevotes,totalvotes,version,mode\n" +
	"2020,GEORGIA,GA,FULTON,13121.0,US PRESIDENT,\"SMITH, JANE\",DEMOCRAT,150,500,1,TOTAL\n" +
	"2020,ALABAMA,AL,AUTAUGA,01001,US PRESIDENT,OTHER,,0,27770,20220315,\n"

func writeInput(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test1.csv"), []byte(content), 0o644))
}

func newNormalizer(t *testing.T, dir string, out *bytes.Buffer) *Normalizer {
	return New(Options{BaseDir: dir, Input: "test1.csv", Output: "test1_cleaned.csv"}, out, zaptest.NewLogger(t))
}

func TestNormalize_WritesQuotedOutput(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, sampleInput)

	var out bytes.Buffer
	res, err := newNormalizer(t, dir, &out).Normalize(context.Background())
	require.NoError(t, err)

	inputPath := filepath.Join(dir, "test1.csv")
	outputPath := filepath.Join(dir, "test1_cleaned.csv")
	assert.Equal(t, &Result{InputPath: inputPath, OutputPath: outputPath, Rows: 2}, res)
	assert.Equal(t,
		"Looking for file at: "+inputPath+"\n"+
			"Cleaned file saved to: "+outputPath+"\n",
		out.String())

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	want := `"year","state","state_po","county_name","county_fips","office","candidate","party","candidatevotes","totalvotes","version","mode"` + "\r\n" +
		`2020,"GEORGIA","GA","FULTON","13121","US PRESIDENT","SMITH, JANE","DEMOCRAT",150,500,1,"TOTAL"` + "\r\n" +
		`2020,"ALABAMA","AL","AUTAUGA","1001","US PRESIDENT","OTHER","",0,27770,20220315,""` + "\r\n"
	assert.Equal(t, want, string(data))
}

func TestNormalize_RoundTripPreservesValues(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, sampleInput)

	_, err := newNormalizer(t, dir, &bytes.Buffer{}).Normalize(context.Background())
	require.NoError(t, err)

	in, err := csvio.ReadFile(filepath.Join(dir, "test1.csv"))
	require.NoError(t, err)
	out, err := csvio.ReadFile(filepath.Join(dir, "test1_cleaned.csv"))
	require.NoError(t, err)

	assert.Equal(t, in.Header, out.Header)
	require.Len(t, out.Rows, len(in.Rows))

	fipsCol, _ := out.Index(models.ColumnCountyFIPS)
	for i := range in.Rows {
		for _, col := range []string{models.ColumnYear, models.ColumnCandidateVotes, models.ColumnTotalVotes, models.ColumnVersion} {
			j, ok := in.Index(col)
			require.True(t, ok)
			want, err := strconv.Atoi(in.Rows[i][j])
			require.NoError(t, err)
			got, err := strconv.Atoi(out.Rows[i][j])
			require.NoError(t, err, "column %s must stay an integer", col)
			assert.Equal(t, want, got)
		}
		assert.NotContains(t, out.Rows[i][fipsCol], ".")
	}
}

func TestNormalize_MissingInput(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	_, err := newNormalizer(t, dir, &out).Normalize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, out.String(), "Looking for file at:")
	assert.NotContains(t, out.String(), "Cleaned file saved to:")

	_, statErr := os.Stat(filepath.Join(dir, "test1_cleaned.csv"))
	assert.True(t, os.IsNotExist(statErr), "no output may be written")
}

func TestNormalize_CoercionFailure(t *testing.T) {
	tests := []struct {
		name   string
		row    string
		column string
	}{
		{"year", "twenty,13121,150,500,1", models.ColumnYear},
		{"float year", "2020.0,13121,150,500,1", models.ColumnYear},
		{"fips", "2020,fulton,150,500,1", models.ColumnCountyFIPS},
		{"empty fips", "2020,,150,500,1", models.ColumnCountyFIPS},
		{"candidatevotes", "2020,13121,1.5,500,1", models.ColumnCandidateVotes},
		{"totalvotes", "2020,13121,150,,1", models.ColumnTotalVotes},
		{"version", "2020,13121,150,500,v1", models.ColumnVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeInput(t, dir, "year,county_fips,candidatevotes,totalvotes,version\n2020,13121,1,2,3\n"+tt.row+"\n")

			_, err := newNormalizer(t, dir, &bytes.Buffer{}).Normalize(context.Background())
			var cerr *CoercionError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, 2, cerr.Record)
			assert.Equal(t, tt.column, cerr.Column)

			_, statErr := os.Stat(filepath.Join(dir, "test1_cleaned.csv"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestNormalize_MissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, "year,county_fips,candidatevotes,totalvotes\n2020,13121,1,2\n")

	_, err := newNormalizer(t, dir, &bytes.Buffer{}).Normalize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
}

func TestNormalize_AbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	writeInput(t, dir, sampleInput)
	outDir := t.TempDir()

	n := New(Options{
		BaseDir: "/unused",
		Input:   filepath.Join(dir, "test1.csv"),
		Output:  filepath.Join(outDir, "clean.csv"),
	}, nil, nil)
	res, err := n.Normalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "clean.csv"), res.OutputPath)
	assert.FileExists(t, res.OutputPath)
}

func TestRows_Scenario(t *testing.T) {
	table := &csvio.Table{
		Header: []string{"year", "county_fips", "candidatevotes", "totalvotes", "version"},
		Rows:   [][]string{{"2020", "13121.0", "150", "500", "1"}},
	}
	rows, err := Rows(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 2020, row.Year)
	assert.Equal(t, "13121", row.CountyFIPS)
	assert.Equal(t, 150, row.CandidateVotes)
	assert.Equal(t, 500, row.TotalVotes)
	assert.Equal(t, 1, row.Version)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, table.Header, rows))
	assert.Equal(t,
		`"year","county_fips","candidatevotes","totalvotes","version"`+"\r\n"+
			`2020,"13121",150,500,1`+"\r\n",
		buf.String())
}

func TestRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	table := &csvio.Table{
		Header: []string{"year", "county_fips", "candidatevotes", "totalvotes", "version"},
		Rows:   [][]string{{"2020", "13121", "1", "2", "3"}},
	}
	_, err := Rows(ctx, table)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveBaseDir(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	got, err := ResolveBaseDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(exe), got)

	got, err = ResolveBaseDir("data")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "data", filepath.Base(got))
}
