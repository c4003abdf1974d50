package preview

import (
	"encoding/json"
)

// Header is one name/value pair of a message's header list
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Node is one part of a MIME tree as serialized by the Gmail API:
// mimeType, body.data (base64), parts and headers. Fields are decoded on
// demand, so a malformed field hides only that field.
type Node map[string]json.RawMessage

// ParseNode decodes a JSON object into a Node
func ParseNode(raw json.RawMessage) (Node, bool) {
	var n Node
	if err := json.Unmarshal(raw, &n); err != nil || n == nil {
		return nil, false
	}
	return n, true
}

func (n Node) MimeType() string {
	var s string
	if err := json.Unmarshal(n["mimeType"], &s); err != nil {
		return ""
	}
	return s
}

// BodyData returns the still-encoded body.data value
func (n Node) BodyData() (string, bool) {
	body, ok := ParseNode(n["body"])
	if !ok {
		return "", false
	}
	var data string
	if err := json.Unmarshal(body["data"], &data); err != nil || data == "" {
		return "", false
	}
	return data, true
}

// Parts returns the decodable child parts in document order
func (n Node) Parts() []Node {
	var raw []json.RawMessage
	if err := json.Unmarshal(n["parts"], &raw); err != nil {
		return nil
	}
	parts := make([]Node, 0, len(raw))
	for _, r := range raw {
		if child, ok := ParseNode(r); ok {
			parts = append(parts, child)
		}
	}
	return parts
}

func (n Node) Headers() []Header {
	var raw []json.RawMessage
	if err := json.Unmarshal(n["headers"], &raw); err != nil {
		return nil
	}
	headers := make([]Header, 0, len(raw))
	for _, r := range raw {
		var h Header
		if err := json.Unmarshal(r, &h); err == nil {
			headers = append(headers, h)
		}
	}
	return headers
}

// Header returns the value of the first header named exactly name
func (n Node) Header(name string) (string, bool) {
	for _, h := range n.Headers() {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}
