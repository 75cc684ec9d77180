// Package intent extracts an object name and category from a spoken request.
package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/star/starseeker/internal/sky"
)

const replySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["object", "type"],
  "properties": {
    "object": {"type": "string", "minLength": 1, "maxLength": 128, "pattern": "\\S"},
    "type": {"type": "string", "minLength": 1}
  }
}`

var schema = jsonschema.MustCompileString("reply.schema.json", replySchema)

type reply struct {
	Object string `json:"object"`
	Type   string `json:"type"`
}

// Parse reads an interpreter reply. It accepts a JSON object
// {"object": ..., "type": ...}, optionally inside a Markdown code fence, or
// the first line of the form "Object,Type". Replies of neither shape are
// ErrMalformedRequest; an unrecognised type is ErrUnknownCategory.
func Parse(raw string) (sky.Request, error) {
	text := stripFence(strings.TrimSpace(raw))
	if text == "" {
		return sky.Request{}, fmt.Errorf("%w: empty reply", sky.ErrMalformedRequest)
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return parseJSON(text)
	}
	return parseLine(text)
}

func parseJSON(text string) (sky.Request, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return sky.Request{}, fmt.Errorf("%w: invalid JSON: %v", sky.ErrMalformedRequest, err)
	}
	if err := schema.Validate(doc); err != nil {
		return sky.Request{}, fmt.Errorf("%w: %v", sky.ErrMalformedRequest, err)
	}
	var r reply
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return sky.Request{}, fmt.Errorf("%w: %v", sky.ErrMalformedRequest, err)
	}
	return build(r.Object, r.Type)
}

func parseLine(text string) (sky.Request, error) {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, ",") {
			continue
		}
		parts := strings.Split(line, ",")
		return build(parts[0], parts[1])
	}
	return sky.Request{}, fmt.Errorf("%w: expected 'Object,Type', got %q", sky.ErrMalformedRequest, text)
}

func build(object, category string) (sky.Request, error) {
	name := strings.Trim(strings.TrimSpace(object), `"'`)
	if name == "" {
		return sky.Request{}, fmt.Errorf("%w: empty object name", sky.ErrMalformedRequest)
	}
	c, err := sky.ParseCategory(strings.Trim(strings.TrimSpace(category), `"'.`))
	if err != nil {
		return sky.Request{}, err
	}
	return sky.Request{Name: name, Category: c}, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
