package database

import (
	"fmt"
	"strings"
)

// M a document, keys are field names and nested documents are M or map[string]any
type M map[string]any

// Lookup resolve a dotted path like location.city inside the document.
func (m M) Lookup(path string) (any, bool) {
	var cur any = map[string]any(m)
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case M:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// String get a string field, empty when missing or not a string
func (m M) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// ID the document id
func (m M) ID() string {
	return m.String(IDKey)
}

// Clone copy the top level of the document
func (m M) Clone() M {
	out := make(M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// IDKey the identifier field of every document.
const IDKey = "_id"

// CE the condition elements
type CE struct {
	Key   string
	Value any
	C     Condition
}

// C the conditions, all elements are joined with AND
type C []CE

// String print the condition as string
func (c C) String() (result string) {
	for _, v := range c {
		result += fmt.Sprintf("[%s %v %v]", v.Key, v.C, v.Value)
	}
	return
}

// ByID the condition matching one id
func ByID(id string) C {
	return C{{Key: IDKey, Value: id}}
}

// Condition the condition
type Condition uint8

// Condition
const (
	// Eq =
	Eq Condition = iota
	// Ne !=
	Ne
	// Lt <
	Lt
	// Lte <=
	Lte
	// Gt >
	Gt
	// Gte >=
	Gte
	// In [a,b,c]
	In
	// Nin Not in [a,b,c]
	Nin
)

var conditionNames = [...]string{"eq", "ne", "lt", "lte", "gt", "gte", "in", "nin"}

// String the operator name used in query strings
func (c Condition) String() string {
	if int(c) < len(conditionNames) {
		return conditionNames[c]
	}
	return fmt.Sprintf("condition(%d)", c)
}

// Index a secondary index, Unique indexes are enforced by every implementation
type Index struct {
	Name   string
	Keys   []string
	Unique bool
}

// IndexName the name of the index, derived from the keys when empty
func (i *Index) IndexName() string {
	if i.Name != "" {
		return i.Name
	}
	return "idx_" + strings.ReplaceAll(strings.Join(i.Keys, "_"), ".", "_")
}
