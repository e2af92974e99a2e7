package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// isoLayout matches the millisecond UTC form produced by browsers.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// zoneless layouts are interpreted as UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// FormatISO renders t as an ISO-8601 UTC timestamp with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISO parses an ISO-8601 timestamp. Values without a zone are taken as UTC.
func ParseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO date %q", s)
}

// EntryJSON is the wire and storage shape of an entry.
type EntryJSON struct {
	ID         string   `json:"id"`
	Products   []string `json:"products"`
	Date       string   `json:"date"`
	HasAllergy bool     `json:"hasAllergy"`
}

// Snapshot is the body exchanged with the snapshot endpoint.
type Snapshot struct {
	Entries []EntryJSON `json:"entries"`
}

// ToJSON converts an entry to its wire shape.
func ToJSON(e Entry) EntryJSON {
	products := e.Products
	if products == nil {
		products = []string{}
	}
	return EntryJSON{
		ID:         e.ID,
		Products:   products,
		Date:       FormatISO(e.Date),
		HasAllergy: e.HasAllergy,
	}
}

// Entry converts the wire shape back into an entry.
func (j EntryJSON) Entry() (Entry, error) {
	date, err := ParseISO(j.Date)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", j.ID, err)
	}
	return Entry{ID: j.ID, Products: j.Products, Date: date, HasAllergy: j.HasAllergy}, nil
}

// EncodeEntries converts entries to their wire shape, keeping the order.
func EncodeEntries(entries []Entry) []EntryJSON {
	out := make([]EntryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToJSON(e))
	}
	return out
}

// DecodeEntries converts wire entries to entries, failing on the first bad date.
func DecodeEntries(items []EntryJSON) ([]Entry, error) {
	out := make([]Entry, 0, len(items))
	for _, item := range items {
		e, err := item.Entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// MirrorRow is an entry as returned by the relational mirror.
// Column names differ from the snapshot shape.
type MirrorRow struct {
	ID         string       `json:"id"`
	Products   FlexProducts `json:"products"`
	EntryDate  string       `json:"entry_date"`
	HasAllergy FlexBool     `json:"has_allergy"`
	CreatedAt  string       `json:"created_at,omitempty"`
}

// MirrorPayload is the body of a mirror GET response.
type MirrorPayload struct {
	Entries []MirrorRow `json:"entries"`
}

// Entry normalizes the row into an entry.
func (r MirrorRow) Entry() (Entry, error) {
	date, err := ParseISO(r.EntryDate)
	if err != nil {
		return Entry{}, fmt.Errorf("mirror entry %s: %w", r.ID, err)
	}
	return Entry{
		ID:         r.ID,
		Products:   []string(r.Products),
		Date:       date,
		HasAllergy: bool(r.HasAllergy),
	}, nil
}

// FlexBool decodes JSON booleans, 0/1 numbers and their string forms.
// MySQL BOOLEAN columns surface as tinyint through some drivers.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	switch strings.ToLower(raw) {
	case "true":
		*b = true
		return nil
	case "false", "null", "":
		*b = false
		return nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid boolean %s", data)
	}
	*b = n != 0
	return nil
}

// FlexProducts decodes a JSON array of names or a string holding one.
type FlexProducts []string

// UnmarshalJSON implements json.Unmarshaler.
func (p *FlexProducts) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			return err
		}
		data = []byte(encoded)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("invalid products: %w", err)
	}
	*p = list
	return nil
}

// StoredEntry is an entry as kept by the snapshot server, with audit timestamps.
type StoredEntry struct {
	EntryJSON
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// StoredSnapshot is the body of a snapshot GET response.
type StoredSnapshot struct {
	Entries []StoredEntry `json:"entries"`
}
