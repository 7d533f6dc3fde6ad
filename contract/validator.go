package contract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Violation is a single contract failure located by field path.
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (v Violation) Error() string {
	if v.Path == "" {
		return v.Reason
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Reason)
}

// ValidationError carries every violation found in one validation pass.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return FormatViolations(e.Violations)
}

// FormatViolations renders violations into a single line.
func FormatViolations(violations []Violation) string {
	switch len(violations) {
	case 0:
		return "validation failed"
	case 1:
		return violations[0].Error()
	}
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Error())
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(violations), strings.Join(msgs, "; "))
}

// Result is the outcome of validating a value.
// Value holds the normalized value: defaults filled, numbers as float64.
type Result struct {
	Value      any
	Violations []Violation
}

// Valid reports whether no violations were found.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Err returns a *ValidationError, or nil when the value is valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Violations: r.Violations}
}

// Paths returns the path of every violation in report order.
func (r Result) Paths() []string {
	paths := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		paths[i] = v.Path
	}
	return paths
}

// Validate checks value against d and returns the normalized value along
// with every violation. It never mutates value and never panics on
// well-formed descriptors. A nil descriptor accepts everything.
func Validate(value any, d *Descriptor) Result {
	if d == nil {
		return Result{Value: cloneValue(value)}
	}
	// 顶层 nil 视为空对象，以便填充默认值
	if value == nil && d.Kind == KindObject {
		value = map[string]any{}
	}

	var violations []Violation
	out := validateValue(value, d, "", &violations)
	return Result{Value: out, Violations: violations}
}

func validateValue(value any, d *Descriptor, path string, violations *[]Violation) any {
	if d == nil {
		return cloneValue(value)
	}

	var out any
	switch d.Kind {
	case KindString:
		out = validateString(value, path, violations)
	case KindNumber:
		out = validateNumber(value, path, violations)
	case KindBoolean:
		out = validateBoolean(value, path, violations)
	case KindObject:
		out = validateObject(value, d, path, violations)
	case KindArray:
		out = validateArray(value, d, path, violations)
	default:
		out = normalizeScalar(value)
	}

	untyped := d.Kind == "" || d.Kind == KindAny
	if len(d.Enum) > 0 && (out != nil || untyped) && !inEnum(out, d.Enum) {
		*violations = append(*violations, Violation{
			Path:   path,
			Reason: fmt.Sprintf("value must be one of: %v", d.Enum),
		})
	}
	return out
}

func validateString(value any, path string, violations *[]Violation) any {
	str, ok := value.(string)
	if !ok {
		*violations = append(*violations, typeMismatch(path, KindString, value))
		return nil
	}
	return str
}

func validateNumber(value any, path string, violations *[]Violation) any {
	num, ok := toFloat64(value)
	if !ok {
		*violations = append(*violations, typeMismatch(path, KindNumber, value))
		return nil
	}
	return num
}

func validateBoolean(value any, path string, violations *[]Violation) any {
	b, ok := value.(bool)
	if !ok {
		*violations = append(*violations, typeMismatch(path, KindBoolean, value))
		return nil
	}
	return b
}

func validateObject(value any, d *Descriptor, path string, violations *[]Violation) any {
	obj, ok := asObject(value)
	if !ok {
		*violations = append(*violations, typeMismatch(path, KindObject, value))
		return nil
	}

	out := make(map[string]any, len(obj)+len(d.Properties))

	// Unknown fields pass through unchanged.
	for k, v := range obj {
		if _, declared := d.Properties[k]; !declared {
			out[k] = cloneValue(v)
		}
	}

	for _, name := range d.Required {
		val, exists := obj[name]
		switch {
		case !exists:
			*violations = append(*violations, Violation{
				Path:   joinPath(path, name),
				Reason: "required field is missing",
			})
		case val == nil:
			*violations = append(*violations, Violation{
				Path:   joinPath(path, name),
				Reason: "required field must not be null",
			})
		}
	}

	for _, name := range d.PropertyNames() {
		prop := d.Properties[name]
		propPath := joinPath(path, name)
		val, exists := obj[name]

		if !exists || val == nil {
			if d.IsRequired(name) {
				continue
			}
			if prop != nil && prop.Default != nil {
				out[name] = validateValue(cloneValue(prop.Default), prop, propPath, violations)
			}
			continue
		}

		if normalized := validateValue(val, prop, propPath, violations); normalized != nil {
			out[name] = normalized
		}
	}

	return out
}

func validateArray(value any, d *Descriptor, path string, violations *[]Violation) any {
	arr, ok := asArray(value)
	if !ok {
		*violations = append(*violations, typeMismatch(path, KindArray, value))
		return nil
	}

	out := make([]any, len(arr))
	for i, item := range arr {
		out[i] = validateValue(item, d.Items, fmt.Sprintf("%s[%d]", path, i), violations)
	}
	return out
}

func typeMismatch(path string, want Kind, got any) Violation {
	return Violation{
		Path:   path,
		Reason: fmt.Sprintf("expected %s, got %s", want, describe(got)),
	}
}

// describe names a value's shape in contract terms rather than Go types.
func describe(v any) string {
	if v == nil {
		return "null"
	}
	if _, ok := toFloat64(v); ok {
		return string(KindNumber)
	}
	switch v.(type) {
	case string:
		return string(KindString)
	case bool:
		return string(KindBoolean)
	}
	if _, ok := asObject(v); ok {
		return string(KindObject)
	}
	if _, ok := asArray(v); ok {
		return string(KindArray)
	}
	return fmt.Sprintf("%T", v)
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}

// asObject accepts any map with string keys ([]map[string]any elements,
// map[string]int and named map types included).
func asObject(v any) (map[string]any, bool) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, true
	case map[string]string:
		out := make(map[string]any, len(obj))
		for k, s := range obj {
			out[k] = s
		}
		return out, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// asArray accepts any slice or array except []byte, which encodes as a string.
func asArray(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []string:
		out := make([]any, len(arr))
		for i, s := range arr {
			out[i] = s
		}
		return out, true
	case []byte, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// normalizeScalar converts numbers to float64 and deep-copies containers.
func normalizeScalar(v any) any {
	if num, ok := toFloat64(v); ok {
		return num
	}
	return cloneValue(v)
}

// toFloat64 converts any Go numeric value to float64.
func toFloat64(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func inEnum(value any, enum []any) bool {
	for _, literal := range enum {
		if equalValues(value, literal) {
			return true
		}
	}
	return false
}

// equalValues compares literals: numbers numerically, strings case-sensitively.
func equalValues(a, b any) bool {
	aNum, aIsNum := toFloat64(a)
	bNum, bIsNum := toFloat64(b)
	if aIsNum || bIsNum {
		return aIsNum && bIsNum && aNum == bNum
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}
