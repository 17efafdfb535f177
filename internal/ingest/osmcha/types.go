package osmcha

import (
	"encoding/json"
	"strconv"
	"strings"
)

// page is one response of the changesets endpoint.
type page struct {
	Count    int       `json:"count"`
	Next     *string   `json:"next"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         int64                      `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// flatten merges the MapComplete metadata into the top-level properties. Metadata wins on
// conflicting keys.
func (f feature) flatten() map[string]json.RawMessage {
	props := make(map[string]json.RawMessage, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = v
	}

	raw, ok := f.Properties[keyMetadata]
	if !ok {
		return props
	}

	var metadata map[string]json.RawMessage
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return props
	}

	delete(props, keyMetadata)

	for k, v := range metadata {
		props[k] = v
	}

	return props
}

// stringValue decodes a JSON string or number as text.
func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

// intValue decodes a JSON number or numeric string; anything else counts as zero.
func intValue(raw json.RawMessage) int {
	text := strings.TrimSpace(stringValue(raw))
	if text == "" {
		return 0
	}

	if n, err := strconv.Atoi(text); err == nil {
		return n
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil {
		return int(f)
	}

	return 0
}

// tagChanges decodes the tag_changes object: tag key to the list of values it had.
func tagChanges(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 {
		return nil
	}

	var changes map[string][]string
	if err := json.Unmarshal(raw, &changes); err != nil {
		return nil
	}

	return changes
}
