package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexID is a player identifier that upstream sends either as a string,
// as a number, or as a document-store object id ({"$oid": "..."}).
type FlexID string

// UnmarshalJSON accepts every upstream representation.
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("player id: %w", err)
		}
		*id = FlexID(strings.TrimSpace(s))
		return nil
	case '{':
		var oid struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(data, &oid); err != nil {
			return fmt.Errorf("player id: %w", err)
		}
		*id = FlexID(strings.TrimSpace(oid.OID))
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("player id: %w", err)
		}
		*id = FlexID(n.String())
		return nil
	}
}

// String returns the canonical form.
func (id FlexID) String() string { return strings.TrimSpace(string(id)) }
