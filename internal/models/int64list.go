package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Int64List is an id list persisted as jsonb. The pgx stdlib driver has no
// native []int64 scan target for database/sql, so lists ride as JSON.
type Int64List []int64

// Value emits text rather than []byte: a byte slice travels as bytea and
// postgres refuses the implicit cast to jsonb.
func (l Int64List) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *Int64List) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("int64list: cannot scan %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

func (l Int64List) Contains(id int64) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}
