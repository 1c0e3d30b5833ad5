package backend

import (
	"encoding/json"
	"fmt"
)

// Query is a single filter, order or pagination clause. It marshals to the
// JSON object form the platform accepts in queries[].
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// String renders q for a query string.
func (q Query) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		return fmt.Sprintf(`{"method":%q}`, q.Method)
	}
	return string(b)
}

func Equal(attribute string, values ...any) Query {
	return Query{Method: "equal", Attribute: attribute, Values: values}
}

func Contains(attribute string, values ...any) Query {
	return Query{Method: "contains", Attribute: attribute, Values: values}
}

// Search is a full-text match and needs a fulltext index on attribute.
func Search(attribute, text string) Query {
	return Query{Method: "search", Attribute: attribute, Values: []any{text}}
}

func OrderDesc(attribute string) Query {
	return Query{Method: "orderDesc", Attribute: attribute}
}

func OrderAsc(attribute string) Query {
	return Query{Method: "orderAsc", Attribute: attribute}
}

func Limit(n int) Query {
	return Query{Method: "limit", Values: []any{n}}
}

func Offset(n int) Query {
	return Query{Method: "offset", Values: []any{n}}
}

// Attribute names managed by the platform.
const (
	AttrID        = "$id"
	AttrCreatedAt = "$createdAt"
	AttrUpdatedAt = "$updatedAt"
)
