package fileformat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/campaignadmin/internal/csvrow"
)

func TestCatalog(t *testing.T) {
	formats := List()
	require.NotEmpty(t, formats)

	ids := make(map[string]bool)
	for _, f := range formats {
		require.NotEmpty(t, f.ID)
		require.NotEmpty(t, f.Fields)
		require.False(t, ids[f.ID], "duplicate format %s", f.ID)
		ids[f.ID] = true
	}

	f, err := Get("one_time_users")
	require.NoError(t, err)
	require.Equal(t, []string{"partner_user_id", "contact"}, f.Header())

	_, err = Get("missing")
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSampleCSVParsesBack(t *testing.T) {
	for _, f := range List() {
		t.Run(f.ID, func(t *testing.T) {
			data, err := f.SampleCSV()
			require.NoError(t, err)
			require.True(t, bytes.HasPrefix(data, []byte("# ")))

			rows, header, err := csvrow.Parse(bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, csvrow.Header(f.Header()), header)
			require.Len(t, rows, len(f.Sample))
			for i, row := range rows {
				for j, name := range f.Header() {
					require.Equal(t, f.Sample[i][j], row.Get(name))
				}
			}
		})
	}
}

func TestLoadRejectsRaggedSample(t *testing.T) {
	_, err := load([]byte(`
- id: broken
  name: Broken
  fields:
    - name: a
    - name: b
  sample:
    - [only-one]
`))
	require.Error(t, err)
}
