package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache compiles each named schema once.
type schemaCache struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{compiled: make(map[string]*jsonschema.Schema)}
}

// check rejects truncated replies and replies that do not match the
// request schema.
func (c *schemaCache) check(vendor string, req Request, resp *Response) error {
	if resp.Truncated {
		return &Error{Kind: KindTruncated, Vendor: vendor, Content: resp.Content}
	}
	if req.Schema == nil {
		return nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(resp.Content))
	if err != nil {
		return &Error{Kind: KindInvalidOutput, Vendor: vendor, Content: resp.Content, Err: fmt.Errorf("reply is not JSON: %w", err)}
	}
	sch, err := c.get(req.Schema)
	if err != nil {
		return err
	}
	if err := sch.Validate(doc); err != nil {
		return &Error{Kind: KindInvalidOutput, Vendor: vendor, Content: resp.Content, Err: err}
	}
	return nil
}

func (c *schemaCache) get(s *Schema) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sch, ok := c.compiled[s.Name]; ok {
		return sch, nil
	}

	// The compiler wants decoded JSON, not Go maps with typed slices.
	raw, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", s.Name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", s.Name, err)
	}

	url := "mem://" + s.Name + ".json"
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", s.Name, err)
	}
	sch, err := comp.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", s.Name, err)
	}
	c.compiled[s.Name] = sch
	return sch, nil
}
