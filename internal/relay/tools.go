package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/agency-hub/backend/internal/gateway"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// JSON schema types accepted in Property.Type.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// Schema is the subset of JSON schema the tools use: a flat object with
// typed properties. Nested objects are described through Items/Properties.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

func (s Schema) MarshalJSON() ([]byte, error) {
	props := s.Properties
	if props == nil {
		props = map[string]Property{}
	}
	return json.Marshal(struct {
		Type       string              `json:"type"`
		Properties map[string]Property `json:"properties"`
		Required   []string            `json:"required,omitempty"`
	}{TypeObject, props, s.Required})
}

// Validate checks decoded arguments against the schema.
func (s Schema) Validate(args map[string]any) error {
	return validateObject("", args, s.Properties, s.Required)
}

func validateObject(path string, obj map[string]any, props map[string]Property, required []string) error {
	for _, name := range required {
		if v, ok := obj[name]; !ok || v == nil {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidArguments, path+name)
		}
	}
	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p, ok := props[name]
		v := obj[name]
		if !ok || v == nil {
			continue
		}
		if err := validateValue(path+name, v, p); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, v any, p Property) error {
	bad := func() error {
		return fmt.Errorf("%w: field %q must be %s", ErrInvalidArguments, path, p.Type)
	}
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return bad()
		}
		if len(p.Enum) > 0 && !contains(p.Enum, s) {
			return fmt.Errorf("%w: field %q must be one of %s", ErrInvalidArguments, path, strings.Join(p.Enum, ", "))
		}
	case TypeInteger:
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return bad()
		}
	case TypeNumber:
		if _, ok := v.(float64); !ok {
			return bad()
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return bad()
		}
	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			return bad()
		}
		if p.Items != nil {
			for i, item := range items {
				if err := validateValue(fmt.Sprintf("%s[%d]", path, i), item, *p.Items); err != nil {
					return err
				}
			}
		}
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return bad()
		}
		return validateObject(path+".", obj, p.Properties, p.Required)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Tool is a named, schema-described side effect exposed to the model.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	run         func(ctx context.Context, raw map[string]any) (string, error)
}

// NewTool binds a typed handler. Arguments are validated against schema and
// then decoded into T, so handlers never see missing required fields or
// wrongly typed values.
func NewTool[T any](name, description string, schema Schema, fn func(ctx context.Context, args T) (string, error)) Tool {
	return Tool{
		Name:        name,
		Description: description,
		Schema:      schema,
		run: func(ctx context.Context, raw map[string]any) (string, error) {
			if err := schema.Validate(raw); err != nil {
				return "", err
			}
			b, err := json.Marshal(raw)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
			var args T
			if err := json.Unmarshal(b, &args); err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
			return fn(ctx, args)
		},
	}
}

// Registry is the tool set of one agent, in declaration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Definitions returns the tool list in the gateway wire format.
func (r *Registry) Definitions() []gateway.Tool {
	defs := make([]gateway.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		params, _ := json.Marshal(t.Schema)
		defs = append(defs, gateway.Tool{
			Type: "function",
			Function: gateway.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return defs
}

// Execute runs one tool call. Malformed argument JSON is read as an empty
// object and then fails schema validation like any other bad input. A panic
// inside the handler is returned as an error.
func (r *Registry) Execute(ctx context.Context, name, arguments string) (result string, err error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	raw := map[string]any{}
	if strings.TrimSpace(arguments) != "" {
		if jerr := json.Unmarshal([]byte(arguments), &raw); jerr != nil || raw == nil {
			raw = map[string]any{}
		}
	}

	defer func() {
		if p := recover(); p != nil {
			result, err = "", fmt.Errorf("tool %s panicked: %v", name, p)
		}
	}()
	return t.run(ctx, raw)
}
