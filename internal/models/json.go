package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSON is a schemaless map persisted as a jsonb column. Admin action
// details and notification payloads use it for fields that vary per
// operation.
type JSON map[string]interface{}

// Value marshals the map for the database driver.
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan unmarshals a jsonb column into the map. Non-byte values are
// ignored rather than failing the row scan.
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// MarshalJSON encodes a nil map as JSON null instead of an empty object.
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return json.Marshal(j)
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return errors.New("nil pointer")
	}
	return json.Unmarshal(data, &j)
}
