package fetcher

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_Basic(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	input := "a,b,c\n1,2,3\n4,5,6\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, rows[2])
}

func TestStreamCSV_HeaderAndBOM(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	input := "\ufeffAOI_Number,plotid\n1,10\n"
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "10"}}, rows)
	assert.Equal(t, []string{"AOI_Number", "plotid"}, <-headerCh)
}

func TestStreamCSV_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var sb strings.Builder
	for range 1000 {
		sb.WriteString("x,y\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})

	<-rowCh
	cancel()

	rows, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Less(t, len(rows), 1000)
}

func TestStreamCSV_TrimAndDelimiter(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(" a | b \n"), CSVOptions{
		Delimiter: '|',
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestReadCSV(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	input := "\ufeffAOI_Number,plotid,lat\n1, 10 ,5.5\n2,11\n"
	tb, err := ReadCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"AOI_Number", "plotid", "lat"}, tb.Header)
	assert.Equal(t, [][]string{{"1", "10", "5.5"}, {"2", "11"}}, tb.Rows)
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	tb, err := ReadCSV(context.Background(), strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tb.Header)
	assert.Empty(t, tb.Rows)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""))
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, Table{
		Header: []string{"plotid", "Land_Cover_Elements"},
		Rows:   [][]string{{"10", "Trees, canopy"}, {"11", "Grass"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "plotid,Land_Cover_Elements\n10,\"Trees, canopy\"\n11,Grass\n", buf.String())
}
