package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePurchaseHistory_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		kind      HistoryKind
		wantTotal int
	}{
		{"null column", "", HistoryAbsent, 3},
		{"json null", "null", HistoryAbsent, 3},
		{"legacy integer", "7", HistoryLegacy, 7},
		{"legacy float", "7.0", HistoryLegacy, 7},
		{"empty list", "[]", HistoryDetailed, 0},
		{"records", `[{"amount":3,"transaction_id":"WELCOME_BONUS","price":0},{"amount":5,"transaction_id":"tx-1","price":4.99}]`, HistoryDetailed, 8},
		{"mixed bare numbers", `[{"amount":3},2,4.0]`, HistoryDetailed, 9},
		{"record without amount", `[{"transaction_id":"x"}]`, HistoryDetailed, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, err := ParsePurchaseHistory([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, h.Kind)
			assert.Equal(t, tc.wantTotal, h.Total(3))
		})
	}
}

func TestParsePurchaseHistory_Invalid(t *testing.T) {
	for _, raw := range []string{`{"amount":1}`, `"seven"`, `[{"amount":"x"}]`, `[true]`} {
		_, err := ParsePurchaseHistory([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestPurchaseHistory_TotalIsIdempotent(t *testing.T) {
	h := DetailedHistory(PurchaseRecord{Amount: 5}, PurchaseRecord{Amount: 3}, PurchaseRecord{Amount: 2})
	first := h.Total(3)
	second := h.Total(3)
	assert.Equal(t, 10, first)
	assert.Equal(t, first, second)
	assert.Len(t, h.Records, 3)
}

func TestPurchaseHistory_TotalOrderIndependent(t *testing.T) {
	a := DetailedHistory(PurchaseRecord{Amount: 5}, PurchaseRecord{Amount: 3}, PurchaseRecord{Amount: 2})
	b := DetailedHistory(PurchaseRecord{Amount: 2}, PurchaseRecord{Amount: 5}, PurchaseRecord{Amount: 3})
	assert.Equal(t, a.Total(0), b.Total(0))
}

func TestPurchaseHistory_MigrationRecord(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := LegacyHistory(7).MigrationRecord(3, created)
	assert.Equal(t, 7, rec.Amount)
	assert.Equal(t, MigratedTransactionID, rec.TransactionID)
	require.NotNil(t, rec.Timestamp)
	assert.True(t, rec.Timestamp.Equal(created))

	absent := PurchaseHistory{}.MigrationRecord(3, created)
	assert.Equal(t, 3, absent.Amount)

	assert.True(t, LegacyHistory(1).NeedsMigration())
	assert.True(t, PurchaseHistory{}.NeedsMigration())
	assert.False(t, DetailedHistory().NeedsMigration())
}

func TestPurchaseHistory_Listing(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	h := DetailedHistory(
		PurchaseRecord{Amount: 3, Timestamp: &older, TransactionID: "a"},
		PurchaseRecord{Amount: 1, TransactionID: LegacyTransactionID},
		PurchaseRecord{Amount: 5, Timestamp: &newer, TransactionID: "b"},
	)

	got := h.Listing()
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].TransactionID)
	assert.Equal(t, "a", got[1].TransactionID)
	assert.Equal(t, LegacyTransactionID, got[2].TransactionID)
	assert.Equal(t, "a", h.Records[0].TransactionID, "listing must not reorder the stored records")

	legacy := LegacyHistory(7).Listing()
	require.Len(t, legacy, 1)
	assert.Equal(t, 7, legacy[0].Amount)
	assert.Nil(t, legacy[0].Timestamp)

	assert.Empty(t, PurchaseHistory{}.Listing())
}

func TestPurchaseHistory_MarshalKeepsShape(t *testing.T) {
	b, err := json.Marshal(LegacyHistory(7))
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(b))

	b, err = json.Marshal(DetailedHistory())
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))

	b, err = json.Marshal(DetailedHistory(PurchaseRecord{Amount: 4, TransactionID: "tx", Price: 1.5}))
	require.NoError(t, err)
	parsed, err := ParsePurchaseHistory(b)
	require.NoError(t, err)
	assert.Equal(t, 4, parsed.Total(0))
	assert.Equal(t, "tx", parsed.Records[0].TransactionID)
}
