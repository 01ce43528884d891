package api

import "encoding/json"

// Envelope is the backend's response wrapper. Data stays raw so each caller
// can decode it into its own payload type; Errors stays raw because the
// backend is inconsistent about its shape (list, map of string, map of
// list, or absent) and is normalized exactly once, here.
type Envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
	Status  int             `json:"status"`
}

// RootErrorKey indexes messages that arrived without a field name (the
// backend sometimes sends a bare list). They belong to the form as a whole.
const RootErrorKey = ""

// normalizeFieldErrors folds every error payload shape the backend emits
// into one canonical map of field name to ordered message list. Unknown or
// malformed shapes normalize to an empty map; nothing above the gateway
// ever branches on payload shape.
func normalizeFieldErrors(raw json.RawMessage) map[string][]string {
	out := map[string][]string{}
	if len(raw) == 0 || string(raw) == "null" {
		return out
	}

	// Bare list: messages not tied to any field.
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 {
			out[RootErrorKey] = list
		}
		return out
	}

	// Map: values may be single strings or lists, field by field.
	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err != nil {
		return out
	}
	for field, v := range byField {
		var many []string
		if err := json.Unmarshal(v, &many); err == nil {
			if len(many) > 0 {
				out[field] = many
			}
			continue
		}
		var one string
		if err := json.Unmarshal(v, &one); err == nil && one != "" {
			out[field] = []string{one}
		}
	}
	return out
}
