package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ResultType values used by the built-in executors.
const (
	ResultTypeError = "error"
)

// Result statuses reported by output nodes. ResultStatusScheduled marks an
// output whose side effect was deferred.
const (
	ResultStatusSuccess   = "success"
	ResultStatusWarning   = "warning"
	ResultStatusError     = "error"
	ResultStatusScheduled = "scheduled"
)

// NodeResult is the output of one node execution. Content is either a string or
// structured data decoded from JSON.
type NodeResult struct {
	Type    string     `json:"type"`
	Content any        `json:"content"`
	Status  string     `json:"status,omitempty"`
	Message string     `json:"message,omitempty"`
	Inputs  *ResultMap `json:"inputs,omitempty"`

	// ScheduledAt is set when the node deferred its side effect.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// ErrorResult builds a node-level failure.
func ErrorResult(message string) NodeResult {
	return NodeResult{Type: ResultTypeError, Content: message}
}

// IsError reports whether the executor failed.
func (r NodeResult) IsError() bool {
	return r.Type == ResultTypeError
}

// ErrResultExists is returned when a result is written twice for the same node.
var ErrResultExists = errors.New("result already recorded")

// ResultMap is an insertion-ordered map of node id to result. A key, once
// written, is never overwritten.
type ResultMap struct {
	keys    []string
	results map[string]NodeResult
}

func NewResultMap() *ResultMap {
	return &ResultMap{results: make(map[string]NodeResult)}
}

// Set records the result for nodeID.
func (m *ResultMap) Set(nodeID string, result NodeResult) error {
	if m.results == nil {
		m.results = make(map[string]NodeResult)
	}

	if _, exists := m.results[nodeID]; exists {
		return fmt.Errorf("%w: %s", ErrResultExists, nodeID)
	}

	m.keys = append(m.keys, nodeID)
	m.results[nodeID] = result

	return nil
}

func (m *ResultMap) Get(nodeID string) (NodeResult, bool) {
	if m == nil {
		return NodeResult{}, false
	}

	result, ok := m.results[nodeID]

	return result, ok
}

func (m *ResultMap) Has(nodeID string) bool {
	_, ok := m.Get(nodeID)

	return ok
}

// Keys returns node ids in insertion order.
func (m *ResultMap) Keys() []string {
	if m == nil {
		return nil
	}

	keys := make([]string, len(m.keys))
	copy(keys, m.keys)

	return keys
}

func (m *ResultMap) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// First returns the earliest inserted result.
func (m *ResultMap) First() (NodeResult, bool) {
	if m.Len() == 0 {
		return NodeResult{}, false
	}

	return m.results[m.keys[0]], true
}

// Each calls fn for every entry in insertion order.
func (m *ResultMap) Each(fn func(nodeID string, result NodeResult)) {
	if m == nil {
		return
	}

	for _, key := range m.keys {
		fn(key, m.results[key])
	}
}

// MarshalJSON encodes the map as a JSON object preserving insertion order.
func (m *ResultMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		v, err := json.Marshal(m.results[key])
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping the order of its keys.
func (m *ResultMap) UnmarshalJSON(b []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(b))

	token, err := decoder.Token()
	if err != nil {
		return err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("result map: expected object, got %v", token)
	}

	m.keys = nil
	m.results = make(map[string]NodeResult)

	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return err
		}

		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("result map: unexpected key %v", token)
		}

		var result NodeResult

		err = decoder.Decode(&result)
		if err != nil {
			return fmt.Errorf("result map: key %s: %w", key, err)
		}

		err = m.Set(key, result)
		if err != nil {
			return err
		}
	}

	_, err = decoder.Token()

	return err
}
