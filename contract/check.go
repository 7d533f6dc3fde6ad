package contract

import (
	"fmt"
	"strings"

	"github.com/BaSui01/toolflow/types"
)

// Check reports whether d is a well-formed descriptor. All problems are
// collected into a single MALFORMED_CONTRACT error.
func Check(d *Descriptor) error {
	if d == nil {
		return types.NewError(types.ErrMalformedContract, "descriptor is nil")
	}

	var problems []string
	checkDescriptor(d, "", &problems)
	if len(problems) == 0 {
		return nil
	}
	return types.NewError(types.ErrMalformedContract, strings.Join(problems, "; "))
}

func checkDescriptor(d *Descriptor, path string, problems *[]string) {
	at := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		if path != "" {
			msg = path + ": " + msg
		}
		*problems = append(*problems, msg)
	}

	if d == nil {
		at("descriptor is nil")
		return
	}

	switch d.Kind {
	case "", KindAny, KindString, KindNumber, KindBoolean:
	case KindObject:
		for _, name := range d.Required {
			prop, ok := d.Properties[name]
			if !ok {
				at("required field %q is not declared", name)
				continue
			}
			if prop != nil && prop.Default != nil {
				at("required field %q must not declare a default", name)
			}
		}
		for _, name := range d.PropertyNames() {
			checkDescriptor(d.Properties[name], joinPath(path, name), problems)
		}
	case KindArray:
		if d.Items == nil {
			at("array descriptor has no items")
		} else {
			checkDescriptor(d.Items, path+"[]", problems)
		}
	default:
		at("unknown kind %q", d.Kind)
		return
	}

	if d.Kind == "" && d.Enum == nil {
		at("descriptor has neither kind nor enum")
	}
	if d.Enum != nil {
		if len(d.Enum) == 0 {
			at("enum is empty")
		}
		if d.Kind == KindObject || d.Kind == KindArray {
			at("enum is not allowed on %s", d.Kind)
		}
		for _, literal := range d.Enum {
			if !literalMatches(d.Kind, literal) {
				at("enum literal %v does not match kind %s", literal, d.Kind)
			}
		}
	}

	if d.Default != nil {
		var violations []Violation
		validateValue(d.Default, d, "", &violations)
		if len(violations) > 0 {
			at("default does not satisfy descriptor: %s", FormatViolations(violations))
		}
	}
}

func literalMatches(kind Kind, literal any) bool {
	switch kind {
	case KindString:
		_, ok := literal.(string)
		return ok
	case KindNumber:
		_, ok := toFloat64(literal)
		return ok
	case KindBoolean:
		_, ok := literal.(bool)
		return ok
	case KindObject, KindArray:
		return true
	default:
		switch literal.(type) {
		case string, bool:
			return true
		}
		_, ok := toFloat64(literal)
		return ok
	}
}
