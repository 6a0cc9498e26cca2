package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDateTruncatesToUTCMidnight(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	d := NewDate(time.Date(2024, 1, 1, 2, 0, 0, 0, tokyo))

	assert.Equal(t, "2023-12-31", d.String())
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), d.Time())
}

func TestDateJSON(t *testing.T) {
	d, err := ParseDate("1965-08-01")
	require.NoError(t, err)

	data, err := json.Marshal(struct {
		D Date  `json:"d"`
		R *Date `json:"r"`
	}{D: d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"1965-08-01","r":null}`, string(data))

	var decoded Date
	require.NoError(t, json.Unmarshal([]byte(`"1965-08-01"`), &decoded))
	assert.Equal(t, d, decoded)

	assert.Error(t, json.Unmarshal([]byte(`19650801`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`"1965-13-01"`), &decoded))
}

func TestDateScan(t *testing.T) {
	want, err := ParseDate("2024-03-15")
	require.NoError(t, err)

	for _, src := range []interface{}{
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		"2024-03-15",
		"2024-03-15 00:00:00+00:00",
		[]byte("2024-03-15T00:00:00Z"),
	} {
		var d Date
		require.NoError(t, d.Scan(src), "%v", src)
		assert.Equal(t, want, d)
	}

	var d Date
	assert.Error(t, d.Scan(int64(3)))
	assert.Error(t, d.Scan("15/03"))
	assert.True(t, want.After(Date{}))
	assert.False(t, want.Before(want))
}
