// Package docstore is the per-user JSON document store with root-level
// merge writes and snapshot subscriptions.
package docstore

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Document maps root field names to their raw JSON values.
type Document map[string]json.RawMessage

var deleteValue = json.RawMessage("null")

// DeleteField is the merge value that removes a root field.
func DeleteField() json.RawMessage {
	return append(json.RawMessage(nil), deleteValue...)
}

func IsDelete(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), deleteValue)
}

func Decode(body string) (Document, error) {
	if strings.TrimSpace(body) == "" {
		return Document{}, nil
	}
	document := Document{}
	if err := json.Unmarshal([]byte(body), &document); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if document == nil {
		document = Document{}
	}
	return document, nil
}

func (document Document) Encode() (string, error) {
	if document == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(document)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func (document Document) Clone() Document {
	clone := make(Document, len(document))
	for key, value := range document {
		clone[key] = append(json.RawMessage(nil), value...)
	}
	return clone
}

// Field decodes one root field into target and reports whether it exists.
func (document Document) Field(key string, target any) (bool, error) {
	value, ok := document[key]
	if !ok || IsDelete(value) {
		return false, nil
	}
	if err := json.Unmarshal(value, target); err != nil {
		return true, fmt.Errorf("decode field %s: %w", key, err)
	}
	return true, nil
}

// Set encodes value into a root field.
func (document Document) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode field %s: %w", key, err)
	}
	document[key] = raw
	return nil
}

// Merge applies partial at the root: each field replaces the stored one
// wholesale and a null value removes it. Nested objects are not merged.
func Merge(current Document, partial Document) Document {
	merged := current.Clone()
	for key, value := range partial {
		if IsDelete(value) {
			delete(merged, key)
			continue
		}
		merged[key] = append(json.RawMessage(nil), value...)
	}
	return merged
}
