package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Header("Account Code", "Account Name", "Type", "Allocated Amount")
	w.Row(Text("5100"), Text(`Rent, "main" hall`), Text("category"), Money(decimal.RequireFromString("1500")))
	require.NoError(t, w.Flush())

	want := "Account Code,Account Name,Type,Allocated Amount\r\n" +
		`"5100","Rent, ""main"" hall","category",1500.00` + "\r\n"
	assert.Equal(t, want, buf.String())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"5100", `Rent, "main" hall`, "category", "1500.00"}, records[1])
}

func TestCells(t *testing.T) {
	assert.Equal(t, Cell(`""`), Text(""))
	assert.Equal(t, Cell("-12.50"), Money(decimal.RequireFromString("-12.5")))
	assert.Equal(t, Cell("31.67"), Number(decimal.RequireFromString("31.67")))
	assert.Equal(t, Cell("true"), Bool(true))
}
