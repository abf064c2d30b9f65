package payload

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMonth(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestDecode(t *testing.T) {
	t.Run("separates amounts from metadata", func(t *testing.T) {
		month, err := Decode(rawMonth(t, `{
			"5100": 1500, "5200": "1200.50",
			"_total": 2700.5, "_updatedBy": "u1", "_updatedAt": "2024-03-05T10:00:00Z"
		}`))
		require.NoError(t, err)

		require.Len(t, month.Entries, 5)
		assert.Equal(t, KindAmount, month.Entries[0].Kind)
		assert.Equal(t, "5100", month.Entries[0].Key)

		amounts := month.Amounts()
		require.Len(t, amounts, 2)
		assert.True(t, amounts["5200"].Equal(decimal.RequireFromString("1200.50")))

		total, ok := month.Total()
		require.True(t, ok)
		assert.Equal(t, "2700.5", total.String())
		assert.Equal(t, "u1", month.UpdatedBy())
		at, ok := month.UpdatedAt()
		require.True(t, ok)
		assert.Equal(t, time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC), at.UTC())
	})

	t.Run("missing metadata", func(t *testing.T) {
		month, err := Decode(rawMonth(t, `{"5100": 10}`))
		require.NoError(t, err)

		_, ok := month.Total()
		assert.False(t, ok)
		assert.Empty(t, month.UpdatedBy())
	})

	t.Run("rejects bad amounts", func(t *testing.T) {
		for _, body := range []string{`{"5100": -1}`, `{"5100": "lots"}`, `{"5100": true}`, `{" ": 1}`} {
			_, err := Decode(rawMonth(t, body))
			assert.Error(t, err, body)
		}
	})
}

func TestEncode(t *testing.T) {
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	out := Encode(map[string]decimal.Decimal{"5100": decimal.NewFromInt(1500)}, decimal.NewFromInt(1500), &at, "u1")

	assert.Equal(t, "2024-03-05T10:00:00Z", out[MetaUpdatedAt])
	assert.Equal(t, "u1", out[MetaUpdatedBy])
	assert.Contains(t, out, "5100")

	bare := Encode(map[string]decimal.Decimal{}, decimal.Zero, nil, "")
	assert.Len(t, bare, 1)
	assert.Contains(t, bare, MetaTotal)

	t.Run("round trips through Decode", func(t *testing.T) {
		data, err := json.Marshal(out)
		require.NoError(t, err)
		var raw map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &raw))

		month, err := Decode(raw)
		require.NoError(t, err)
		assert.True(t, month.Amounts()["5100"].Equal(decimal.NewFromInt(1500)))
		assert.Equal(t, "u1", month.UpdatedBy())
	})
}
