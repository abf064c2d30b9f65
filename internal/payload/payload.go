// Package payload encodes and decodes the allocation month objects exchanged
// with the web client. A month object mixes account amounts with metadata
// keys that start with an underscore:
//
//	{"5100": 1500, "5200": 1200, "_total": 2700, "_updatedBy": "u1"}
//
// Decoding turns each key into an Entry tagged with its kind so callers never
// mistake metadata for an account code.
package payload

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Metadata keys of a month object.
const (
	MetaUpdatedAt = "_updatedAt"
	MetaUpdatedBy = "_updatedBy"
	MetaTotal     = "_total"
)

// Kind tags an Entry.
type Kind string

const (
	KindAmount   Kind = "amount"
	KindMetadata Kind = "metadata"
)

// Entry is one key of a month object. Amount is set for KindAmount entries,
// Value for KindMetadata entries.
type Entry struct {
	Kind   Kind
	Key    string
	Amount decimal.Decimal
	Value  json.RawMessage
}

// Month is a decoded month object.
type Month struct {
	Entries []Entry
}

// Decode classifies every key of raw. Amount values may be JSON numbers or
// numeric strings and must not be negative.
func Decode(raw map[string]json.RawMessage) (Month, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	month := Month{Entries: make([]Entry, 0, len(keys))}
	for _, key := range keys {
		value := raw[key]
		if strings.HasPrefix(key, "_") {
			month.Entries = append(month.Entries, Entry{Kind: KindMetadata, Key: key, Value: value})
			continue
		}
		if strings.TrimSpace(key) == "" {
			return Month{}, fmt.Errorf("allocation account code cannot be empty")
		}
		var amount decimal.Decimal
		if err := json.Unmarshal(value, &amount); err != nil {
			return Month{}, fmt.Errorf("allocation for %s is not a number", key)
		}
		if amount.IsNegative() {
			return Month{}, fmt.Errorf("allocation for %s cannot be negative", key)
		}
		month.Entries = append(month.Entries, Entry{Kind: KindAmount, Key: key, Amount: amount})
	}
	return month, nil
}

// Amounts returns the account amounts of the month.
func (m Month) Amounts() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, e := range m.Entries {
		if e.Kind == KindAmount {
			out[e.Key] = e.Amount
		}
	}
	return out
}

// Total returns the _total metadata, if present and numeric.
func (m Month) Total() (decimal.Decimal, bool) {
	var total decimal.Decimal
	if !m.decodeMeta(MetaTotal, &total) {
		return decimal.Zero, false
	}
	return total, true
}

// UpdatedBy returns the _updatedBy metadata.
func (m Month) UpdatedBy() string {
	var by string
	m.decodeMeta(MetaUpdatedBy, &by)
	return by
}

// UpdatedAt returns the _updatedAt metadata, if present and RFC3339.
func (m Month) UpdatedAt() (time.Time, bool) {
	var at time.Time
	if !m.decodeMeta(MetaUpdatedAt, &at) {
		return time.Time{}, false
	}
	return at, true
}

func (m Month) decodeMeta(key string, dst interface{}) bool {
	for _, e := range m.Entries {
		if e.Kind == KindMetadata && e.Key == key {
			return json.Unmarshal(e.Value, dst) == nil
		}
	}
	return false
}

// Encode builds a month object from amounts and metadata. Empty metadata is omitted.
func Encode(amounts map[string]decimal.Decimal, total decimal.Decimal, updatedAt *time.Time, updatedBy string) map[string]interface{} {
	out := make(map[string]interface{}, len(amounts)+3)
	for code, amount := range amounts {
		out[code] = amount
	}
	out[MetaTotal] = total
	if updatedAt != nil {
		out[MetaUpdatedAt] = updatedAt.UTC().Format(time.RFC3339)
	}
	if updatedBy != "" {
		out[MetaUpdatedBy] = updatedBy
	}
	return out
}
