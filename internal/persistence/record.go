package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MRamiBalles/CookieClicker/internal/engine"
)

// maxLevel caps decoded owned counts. The engine clamps them further to each
// item's MaxOwned.
const maxLevel = math.MaxInt32

// SaveRecord is the stored form of a session.
// CookiePerClick and CookiePerSecond are written for older readers and
// ignored on load: yields are always recomputed from the levels.
type SaveRecord struct {
	Cookie          float64      `json:"cookie"`
	CookiePerClick  float64      `json:"cookie_per_click"`
	CookiePerSecond float64      `json:"cookie_per_second"`
	ShopLevels      []LevelEntry `json:"shopLevels"`
}

// LevelEntry is one item's ownership inside a SaveRecord.
// One-time items store level 1 with Purchased set once bought.
type LevelEntry struct {
	ID        string `json:"id"`
	Level     int    `json:"level"`
	Purchased bool   `json:"purchased,omitempty"`
}

// errMalformed marks payloads that cannot be read as a SaveRecord at all.
var errMalformed = errors.New("malformed save record")

// NewSaveRecord converts a snapshot into its stored form.
func NewSaveRecord(s engine.Snapshot) SaveRecord {
	rec := SaveRecord{
		Cookie:          s.State.Balance,
		CookiePerClick:  s.State.PerClickYield,
		CookiePerSecond: s.State.PerIntervalYield,
		ShopLevels:      make([]LevelEntry, 0, len(s.Items)),
	}
	for _, v := range s.Items {
		entry := LevelEntry{ID: v.ID, Level: v.Owned}
		if v.OneTime {
			entry.Purchased = v.Purchased
			if v.Purchased {
				entry.Level = 1
			}
		}
		rec.ShopLevels = append(rec.ShopLevels, entry)
	}
	return rec
}

// Encode renders the record as JSON.
func (r SaveRecord) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode save record: %w", err)
	}
	return string(data), nil
}

// RestoreInput converts the record into engine input.
// A level on a one-time item counts as purchased.
func (r SaveRecord) RestoreInput() engine.RestoreInput {
	in := engine.RestoreInput{
		Balance:   r.Cookie,
		Levels:    make(map[string]int, len(r.ShopLevels)),
		Purchased: make(map[string]bool),
	}
	for _, e := range r.ShopLevels {
		in.Levels[e.ID] = e.Level
		if e.Purchased || e.Level > 0 {
			in.Purchased[e.ID] = true
		}
	}
	return in
}

// DecodeSaveRecord parses a stored payload leniently: numbers may arrive as
// numeric strings and invalid amounts become 0. It fails only when the payload
// is not JSON, is not an object, has a non-array shopLevels, or has an entry
// without a string id.
func DecodeSaveRecord(payload string) (SaveRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return SaveRecord{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if fields == nil {
		return SaveRecord{}, fmt.Errorf("%w: top level is null", errMalformed)
	}

	rec := SaveRecord{
		Cookie:          coerceAmount(fields["cookie"]),
		CookiePerClick:  coerceAmount(fields["cookie_per_click"]),
		CookiePerSecond: coerceAmount(fields["cookie_per_second"]),
	}

	raw, ok := fields["shopLevels"]
	if !ok || isNull(raw) {
		return rec, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return SaveRecord{}, fmt.Errorf("%w: shopLevels is not an array", errMalformed)
	}

	rec.ShopLevels = make([]LevelEntry, 0, len(entries))
	for i, rawEntry := range entries {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(rawEntry, &entry); err != nil || entry == nil {
			return SaveRecord{}, fmt.Errorf("%w: shopLevels[%d] is not an object", errMalformed, i)
		}
		rawID, ok := entry["id"]
		var id string
		if !ok || isNull(rawID) || json.Unmarshal(rawID, &id) != nil {
			return SaveRecord{}, fmt.Errorf("%w: shopLevels[%d] has no string id", errMalformed, i)
		}
		var purchased bool
		_ = json.Unmarshal(entry["purchased"], &purchased)

		rec.ShopLevels = append(rec.ShopLevels, LevelEntry{
			ID:        id,
			Level:     coerceLevel(entry["level"]),
			Purchased: purchased,
		})
	}
	return rec, nil
}

// coerceAmount reads a JSON number or numeric string; anything else, and any
// negative or non-finite value, is 0.
func coerceAmount(raw json.RawMessage) float64 {
	f, ok := parseNumber(raw)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// coerceLevel is coerceAmount truncated toward zero and capped at maxLevel.
func coerceLevel(raw json.RawMessage) int {
	f := math.Trunc(coerceAmount(raw))
	if f > maxLevel {
		return maxLevel
	}
	return int(f)
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
