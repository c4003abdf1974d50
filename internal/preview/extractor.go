// Package preview turns stored objects into something the dashboard can show.
// Gmail API message exports are rendered as HTML; everything else is text.
package preview

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Limits on the MIME tree walk
const (
	DefaultMaxDepth = 64
	DefaultMaxNodes = 10000
	RawPreviewChars = 1000
)

const plainTextTemplateOpen = `<div style="font-family: Arial, sans-serif; line-height: 1.6; padding: 20px; white-space: pre-wrap;">`
const plainTextTemplateClose = `</div>`

// Result is the preview payload returned to the dashboard
type Result struct {
	IsStructuredMessage bool    `json:"isStructuredMessage"`
	Content             *string `json:"content"`
	HTMLContent         *string `json:"htmlContent"`
	EmailSubject        *string `json:"emailSubject"`
	EmailFrom           *string `json:"emailFrom"`
	EmailDate           *string `json:"emailDate"`
	RawPreview          string  `json:"rawPreview"`
}

// Sanitizer cleans HTML before it is handed to the browser.
// *bluemonday.Policy satisfies it.
type Sanitizer interface {
	Sanitize(s string) string
}

// DefaultSanitizer is the policy used for message HTML. Inline styles are
// kept when every declaration passes bluemonday's CSS value handlers.
func DefaultSanitizer() Sanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	p.AllowStyles(messageStyles...).Globally()
	return p
}

// messageStyles are the CSS properties mail clients commonly inline
var messageStyles = []string{
	"color", "background-color",
	"font-family", "font-size", "font-weight", "font-style",
	"line-height", "text-align", "text-decoration", "white-space",
	"margin", "padding", "border", "width", "height",
}

// Extractor builds previews. The zero value uses the default limits and
// does not sanitize.
type Extractor struct {
	MaxDepth  int
	MaxNodes  int
	Sanitizer Sanitizer
}

func NewExtractor(sanitizer Sanitizer) *Extractor {
	return &Extractor{
		MaxDepth:  DefaultMaxDepth,
		MaxNodes:  DefaultMaxNodes,
		Sanitizer: sanitizer,
	}
}

// Extract never fails. Input that is not a JSON object with a payload is
// returned as plain text.
func (e *Extractor) Extract(raw []byte) Result {
	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}

	payload, ok := messagePayload([]byte(text))
	if !ok {
		return Result{
			Content:    &text,
			RawPreview: truncate(text, RawPreviewChars),
		}
	}

	res := Result{
		IsStructuredMessage: true,
		RawPreview:          truncate(text, RawPreviewChars),
	}
	if payload == nil {
		return res
	}

	res.EmailSubject = headerValue(payload, "Subject")
	res.EmailFrom = headerValue(payload, "From")
	res.EmailDate = headerValue(payload, "Date")

	if html, found := e.findBody(payload); found {
		res.HTMLContent = &html
	}
	return res
}

// findBody applies the body priority: payload.body.data, then the first
// text/html part, then the first text/plain part wrapped as HTML.
func (e *Extractor) findBody(payload Node) (string, bool) {
	if data, ok := payload.BodyData(); ok {
		if html, ok := decodeBase64(data); ok {
			return e.sanitize(html), true
		}
	}
	if html, ok := e.searchParts(payload, "text/html"); ok {
		return e.sanitize(html), true
	}
	if plain, ok := e.searchParts(payload, "text/plain"); ok {
		return wrapPlainText(plain), true
	}
	return "", false
}

type frame struct {
	node  Node
	depth int
}

// searchParts walks root's parts depth-first, in document order, and
// returns the decoded body of the first node with the given mime type.
// Exceeding MaxDepth or MaxNodes ends the search with nothing found.
func (e *Extractor) searchParts(root Node, mimeType string) (string, bool) {
	maxDepth, maxNodes := e.limits()

	stack := pushChildren(nil, root.Parts(), 1)
	visited := 0
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > maxNodes || top.depth > maxDepth {
			return "", false
		}

		if top.node.MimeType() == mimeType {
			if data, ok := top.node.BodyData(); ok {
				if decoded, ok := decodeBase64(data); ok {
					return decoded, true
				}
			}
		}
		stack = pushChildren(stack, top.node.Parts(), top.depth+1)
	}
	return "", false
}

// pushChildren pushes parts in reverse so the first part is popped first
func pushChildren(stack []frame, parts []Node, depth int) []frame {
	for i := len(parts) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: parts[i], depth: depth})
	}
	return stack
}

func (e *Extractor) limits() (int, int) {
	maxDepth, maxNodes := e.MaxDepth, e.MaxNodes
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return maxDepth, maxNodes
}

func (e *Extractor) sanitize(html string) string {
	if e.Sanitizer == nil {
		return html
	}
	return e.Sanitizer.Sanitize(html)
}

// messagePayload reports whether text is a JSON object with a truthy
// payload field. The returned Node is nil when the payload is not an object.
func messagePayload(text []byte) (Node, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(text, &doc); err != nil {
		// Too deep to decode, but the payload is still a message; the body
		// search would exceed MaxDepth long before that depth anyway.
		if isDepthError(err) && hasTruthyPayload(text) {
			return nil, true
		}
		return nil, false
	}
	if doc == nil {
		return nil, false
	}
	raw, ok := doc["payload"]
	if !ok || isFalsy(raw) {
		return nil, false
	}
	payload, _ := ParseNode(raw)
	return payload, true
}

func isDepthError(err error) bool {
	var se *json.SyntaxError
	return errors.As(err, &se) && strings.Contains(se.Error(), "exceeded max depth")
}

// hasTruthyPayload streams the top level of a document and reports whether
// it has a truthy payload field. Delimiter tokens are not depth limited, so
// this works on documents json.Unmarshal rejects.
func hasTruthyPayload(text []byte) bool {
	dec := json.NewDecoder(bytes.NewReader(text))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return false
	}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return false
		}
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if key == "payload" {
			return truthyToken(tok)
		}
		if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
			if !skipValue(dec) {
				return false
			}
		}
	}
	return false
}

func truthyToken(tok json.Token) bool {
	switch v := tok.(type) {
	case json.Delim:
		return v == '{' || v == '['
	case string:
		return v != ""
	case float64:
		return v != 0
	case bool:
		return v
	}
	return false
}

// skipValue consumes the rest of an object or array whose opening
// delimiter has already been read
func skipValue(dec *json.Decoder) bool {
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return false
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return true
}

func isFalsy(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

func headerValue(n Node, name string) *string {
	v, ok := n.Header(name)
	if !ok || v == "" {
		return nil
	}
	return &v
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBase64 accepts the standard and URL-safe alphabets, padded or not.
// Line breaks are ignored. An empty or undecodable value is not a match.
func decodeBase64(data string) (string, bool) {
	data = strings.Map(func(r rune) rune {
		switch r {
		case '\r', '\n', ' ', '\t':
			return -1
		}
		return r
	}, data)
	for _, enc := range base64Encodings {
		decoded, err := enc.DecodeString(data)
		if err != nil {
			continue
		}
		if len(decoded) == 0 {
			return "", false
		}
		return strings.ToValidUTF8(string(decoded), "\uFFFD"), true
	}
	return "", false
}

func wrapPlainText(text string) string {
	escaped := strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace(text)
	return plainTextTemplateOpen + escaped + plainTextTemplateClose
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
