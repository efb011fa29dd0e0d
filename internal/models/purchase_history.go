package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	WelcomeBonusTransactionID = "WELCOME_BONUS"
	MigratedTransactionID     = "MIGRATED_LEGACY"
	LegacyTransactionID       = "LEGACY"
)

// PurchaseRecord is one immutable credit grant.
type PurchaseRecord struct {
	Amount        int        `json:"amount"`
	Timestamp     *time.Time `json:"timestamp"`
	TransactionID string     `json:"transaction_id"`
	Price         float64    `json:"price"`
}

type HistoryKind int

const (
	// HistoryAbsent means the column was never written.
	HistoryAbsent HistoryKind = iota
	// HistoryLegacy is the old shape: one bare integer total with no detail.
	HistoryLegacy
	// HistoryDetailed is the canonical append-only list of records.
	HistoryDetailed
)

// PurchaseHistory holds the stored purchase history in whichever shape it was written.
type PurchaseHistory struct {
	Kind        HistoryKind
	LegacyTotal int
	Records     []PurchaseRecord
}

func LegacyHistory(total int) PurchaseHistory {
	return PurchaseHistory{Kind: HistoryLegacy, LegacyTotal: total}
}

func DetailedHistory(records ...PurchaseRecord) PurchaseHistory {
	return PurchaseHistory{Kind: HistoryDetailed, Records: records}
}

// Total returns the number of credits ever purchased. An absent history counts
// as the welcome bonus. Total never mutates the receiver.
func (h PurchaseHistory) Total(welcomeBonus int) int {
	switch h.Kind {
	case HistoryLegacy:
		return h.LegacyTotal
	case HistoryDetailed:
		total := 0
		for _, r := range h.Records {
			total += r.Amount
		}
		return total
	default:
		return welcomeBonus
	}
}

// NeedsMigration reports whether the history must be rewritten to the detailed
// shape before a record can be appended.
func (h PurchaseHistory) NeedsMigration() bool {
	return h.Kind != HistoryDetailed
}

// MigrationRecord is the single record that replaces a legacy or absent history.
func (h PurchaseHistory) MigrationRecord(welcomeBonus int, createdAt time.Time) PurchaseRecord {
	ts := createdAt.UTC()
	return PurchaseRecord{
		Amount:        h.Total(welcomeBonus),
		Timestamp:     &ts,
		TransactionID: MigratedTransactionID,
		Price:         0,
	}
}

// Listing returns the records newest first. A legacy total is presented as one
// record without a timestamp.
func (h PurchaseHistory) Listing() []PurchaseRecord {
	switch h.Kind {
	case HistoryLegacy:
		return []PurchaseRecord{{Amount: h.LegacyTotal, TransactionID: LegacyTransactionID}}
	case HistoryDetailed:
		out := make([]PurchaseRecord, len(h.Records))
		copy(out, h.Records)
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].Timestamp, out[j].Timestamp
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}
			return a.After(*b)
		})
		return out
	default:
		return []PurchaseRecord{}
	}
}

type wireRecord struct {
	Amount        float64    `json:"amount"`
	Timestamp     *time.Time `json:"timestamp"`
	TransactionID string     `json:"transaction_id"`
	Price         float64    `json:"price"`
}

// ParsePurchaseHistory decodes the raw JSON column value. NULL or empty input is
// an absent history; a number is the legacy shape; an array is the detailed
// shape, where elements may be records or bare numbers.
func ParsePurchaseHistory(raw []byte) (PurchaseHistory, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return PurchaseHistory{Kind: HistoryAbsent}, nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return PurchaseHistory{}, fmt.Errorf("decode purchase list: %w", err)
		}
		records := make([]PurchaseRecord, 0, len(items))
		for _, item := range items {
			rec, err := parseRecord(item)
			if err != nil {
				return PurchaseHistory{}, err
			}
			records = append(records, rec)
		}
		return DetailedHistory(records...), nil
	case '{':
		return PurchaseHistory{}, fmt.Errorf("unexpected purchase history object")
	default:
		var total float64
		if err := json.Unmarshal(raw, &total); err != nil {
			return PurchaseHistory{}, fmt.Errorf("decode legacy purchase total: %w", err)
		}
		return LegacyHistory(int(total)), nil
	}
}

func parseRecord(item json.RawMessage) (PurchaseRecord, error) {
	item = bytes.TrimSpace(item)
	if len(item) > 0 && item[0] == '{' {
		var w wireRecord
		if err := json.Unmarshal(item, &w); err != nil {
			return PurchaseRecord{}, fmt.Errorf("decode purchase record: %w", err)
		}
		return PurchaseRecord{
			Amount:        int(w.Amount),
			Timestamp:     w.Timestamp,
			TransactionID: w.TransactionID,
			Price:         w.Price,
		}, nil
	}
	var n float64
	if err := json.Unmarshal(item, &n); err != nil {
		return PurchaseRecord{}, fmt.Errorf("decode bare purchase amount: %w", err)
	}
	return PurchaseRecord{Amount: int(n), TransactionID: LegacyTransactionID}, nil
}

// MarshalJSON writes the history in its stored shape.
func (h PurchaseHistory) MarshalJSON() ([]byte, error) {
	switch h.Kind {
	case HistoryLegacy:
		return json.Marshal(h.LegacyTotal)
	case HistoryDetailed:
		if h.Records == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(h.Records)
	default:
		return []byte("null"), nil
	}
}
