package credential

import (
	"encoding/json"
	"time"
)

// record is the stored form of a credential.
type record struct {
	Value     string `json:"value"`
	ExpiresAt *int64 `json:"expiresAt,omitempty"` // epoch milliseconds
}

func newRecord(value string, expiresAt time.Time) record {
	r := record{Value: value}
	if !expiresAt.IsZero() {
		ms := expiresAt.UnixMilli()
		r.ExpiresAt = &ms
	}
	return r
}

func (r record) expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.UnixMilli() > *r.ExpiresAt
}

func (r record) encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeRecord(raw string) (record, error) {
	var r record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return record{}, err
	}
	return r, nil
}
