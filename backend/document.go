package backend

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is a schema-flexible record. System attributes (prefixed with $ on
// the wire) are lifted into fields; everything else stays in Data.
type Document struct {
	ID          string
	Collection  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Permissions []string
	Data        map[string]any
}

// DocumentList is one page of a list query.
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// UnmarshalJSON splits system attributes from user data.
func (d *Document) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	*d = Document{Data: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "$id":
			d.ID, _ = v.(string)
		case "$collectionId":
			d.Collection, _ = v.(string)
		case "$createdAt":
			d.CreatedAt = ParseTime(v)
		case "$updatedAt":
			d.UpdatedAt = ParseTime(v)
		case "$permissions":
			d.Permissions = toStrings(v)
		case "$databaseId", "$sequence":
		default:
			d.Data[k] = v
		}
	}
	return nil
}

// String returns a string attribute, or "".
func (d Document) String(key string) string {
	s, _ := d.Data[key].(string)
	return s
}

// Strings returns a string array attribute.
func (d Document) Strings(key string) []string {
	return toStrings(d.Data[key])
}

// Int returns a numeric attribute as int64.
func (d Document) Int(key string) int64 {
	switch v := d.Data[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

// Ref returns the id held by a reference attribute. Relationship attributes
// come back either as a bare id or as the expanded related document.
func (d Document) Ref(key string) string {
	switch v := d.Data[key].(type) {
	case string:
		return v
	case map[string]any:
		id, _ := v["$id"].(string)
		return id
	}
	return ""
}

// Expanded returns the related document embedded under key, if any.
func (d Document) Expanded(key string) (map[string]any, bool) {
	m, ok := d.Data[key].(map[string]any)
	return m, ok
}

// ParseTime reads the platform's ISO 8601 timestamps. Unparseable values
// yield the zero time.
func ParseTime(v any) time.Time {
	s, _ := v.(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func toStrings(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, x := range vs {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
