package contract

import (
	"maps"
	"slices"
)

// Kind represents the expected shape of a value.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindAny     Kind = "any"
)

// Descriptor declares the shape of a tool input or output.
// An empty Kind with a non-empty Enum means "one of these literals".
type Descriptor struct {
	Kind        Kind                   `json:"type,omitempty" yaml:"type,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Enum        []any                  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Properties  map[string]*Descriptor `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string               `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *Descriptor            `json:"items,omitempty" yaml:"items,omitempty"`
	Default     any                    `json:"default,omitempty" yaml:"default,omitempty"`
}

// String creates a string descriptor.
func String() *Descriptor {
	return &Descriptor{Kind: KindString}
}

// Number creates a number descriptor.
func Number() *Descriptor {
	return &Descriptor{Kind: KindNumber}
}

// Boolean creates a boolean descriptor.
func Boolean() *Descriptor {
	return &Descriptor{Kind: KindBoolean}
}

// Any creates a descriptor that accepts every value.
func Any() *Descriptor {
	return &Descriptor{Kind: KindAny}
}

// Enum creates a descriptor restricted to the given literals.
func Enum(values ...any) *Descriptor {
	return &Descriptor{Enum: values}
}

// Object creates an object descriptor without properties.
func Object() *Descriptor {
	return &Descriptor{
		Kind:       KindObject,
		Properties: make(map[string]*Descriptor),
	}
}

// ArrayOf creates an array descriptor with the given item descriptor.
func ArrayOf(items *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindArray, Items: items}
}

// Prop adds a property to an object descriptor.
func (d *Descriptor) Prop(name string, prop *Descriptor) *Descriptor {
	if d.Properties == nil {
		d.Properties = make(map[string]*Descriptor)
	}
	d.Properties[name] = prop
	return d
}

// Require marks fields as required.
func (d *Descriptor) Require(names ...string) *Descriptor {
	d.Required = append(d.Required, names...)
	return d
}

// WithDefault sets the value used when an optional field is absent.
func (d *Descriptor) WithDefault(v any) *Descriptor {
	d.Default = v
	return d
}

// WithDescription sets the description.
func (d *Descriptor) WithDescription(desc string) *Descriptor {
	d.Description = desc
	return d
}

// WithEnum restricts a typed descriptor to the given literals.
func (d *Descriptor) WithEnum(values ...any) *Descriptor {
	d.Enum = values
	return d
}

// IsRequired reports whether name is a required field.
func (d *Descriptor) IsRequired(name string) bool {
	return d != nil && slices.Contains(d.Required, name)
}

// PropertyNames returns the declared property names in sorted order.
func (d *Descriptor) PropertyNames() []string {
	if d == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(d.Properties))
}

// Clone returns a deep copy, including enum literals and defaults.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}

	clone := &Descriptor{
		Kind:        d.Kind,
		Description: d.Description,
		Default:     cloneValue(d.Default),
		Items:       d.Items.Clone(),
	}

	if d.Enum != nil {
		clone.Enum = make([]any, len(d.Enum))
		for i, v := range d.Enum {
			clone.Enum[i] = cloneValue(v)
		}
	}

	if d.Properties != nil {
		clone.Properties = make(map[string]*Descriptor, len(d.Properties))
		for k, v := range d.Properties {
			clone.Properties[k] = v.Clone()
		}
	}

	if d.Required != nil {
		clone.Required = slices.Clone(d.Required)
	}

	return clone
}

// cloneValue deep-copies maps and slices so defaults are never shared
// between validated results.
func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	case map[string]string:
		return maps.Clone(val)
	default:
		return v
	}
}
