package fhirpath

import (
	"encoding/json"
	"fmt"
	"reflect"
	"unicode"
)

// Evaluate parses the expression and evaluates it against the given root resource.
// See Expression.Evaluate.
func Evaluate(root interface{}, expression string, vars map[string]interface{}) ([]interface{}, error) {
	expr, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	return expr.Evaluate(root, vars)
}

// Evaluate evaluates the expression against the given root resource, typically a
// JSON-decoded FHIR resource or Bundle. vars supplies the values of %variable
// references and may be nil. The result is a collection: an empty result means
// the expression did not select any value, which is not an error.
func (e *Expression) Evaluate(root interface{}, vars map[string]interface{}) ([]interface{}, error) {
	ctx := &evalContext{root: root, vars: vars}
	return ctx.eval(e.ast, asCollection(root))
}

type evalContext struct {
	root interface{}
	vars map[string]interface{}
}

// eval evaluates node against the focus collection. Resource type roots and
// %variables are absolute and ignore the focus, everything else navigates it.
func (ctx *evalContext) eval(n *node, focus []interface{}) ([]interface{}, error) {
	switch n.kind {
	case ndLiteral:
		return []interface{}{n.value}, nil
	case ndRoot:
		if isTypeName(n.name) {
			return selectResources(ctx.root, n.name), nil
		}
		return navigateField(focus, n.name), nil
	case ndVariable:
		value, ok := ctx.vars[n.name]
		if !ok {
			return nil, fmt.Errorf("undefined variable %%%s", n.name)
		}
		return asCollection(value), nil
	case ndField:
		input, err := ctx.eval(n.child, focus)
		if err != nil {
			return nil, err
		}
		return navigateField(input, n.name), nil
	case ndFunction:
		input, err := ctx.eval(n.child, focus)
		if err != nil {
			return nil, err
		}
		return ctx.evalFunction(n, input)
	case ndIndex:
		input, err := ctx.eval(n.child, focus)
		if err != nil {
			return nil, err
		}
		if n.index < 0 || n.index >= len(input) {
			return nil, nil
		}
		return []interface{}{input[n.index]}, nil
	case ndCompare:
		left, err := ctx.eval(n.left, focus)
		if err != nil {
			return nil, err
		}
		right, err := ctx.eval(n.right, focus)
		if err != nil {
			return nil, err
		}
		// Comparison with an empty operand yields empty, per the FHIRPath spec.
		if len(left) == 0 || len(right) == 0 {
			return nil, nil
		}
		equal := collectionsEqual(left, right)
		if n.name == "!=" {
			equal = !equal
		}
		return []interface{}{equal}, nil
	default:
		return nil, fmt.Errorf("unsupported expression node %d", n.kind)
	}
}

func (ctx *evalContext) evalFunction(n *node, input []interface{}) ([]interface{}, error) {
	switch n.name {
	case "where":
		if len(n.args) != 1 {
			return nil, fmt.Errorf("where() requires exactly one argument")
		}
		return ctx.filter(input, n.args[0])
	case "exists":
		switch len(n.args) {
		case 0:
			return []interface{}{len(input) > 0}, nil
		case 1:
			matches, err := ctx.filter(input, n.args[0])
			if err != nil {
				return nil, err
			}
			return []interface{}{len(matches) > 0}, nil
		default:
			return nil, fmt.Errorf("exists() takes at most one argument")
		}
	case "empty":
		if len(n.args) != 0 {
			return nil, fmt.Errorf("empty() takes no arguments")
		}
		return []interface{}{len(input) == 0}, nil
	case "count":
		if len(n.args) != 0 {
			return nil, fmt.Errorf("count() takes no arguments")
		}
		return []interface{}{len(input)}, nil
	case "first":
		if len(n.args) != 0 {
			return nil, fmt.Errorf("first() takes no arguments")
		}
		if len(input) == 0 {
			return nil, nil
		}
		return input[:1], nil
	case "last":
		if len(n.args) != 0 {
			return nil, fmt.Errorf("last() takes no arguments")
		}
		if len(input) == 0 {
			return nil, nil
		}
		return input[len(input)-1:], nil
	case "not":
		if len(n.args) != 0 {
			return nil, fmt.Errorf("not() takes no arguments")
		}
		if len(input) == 0 {
			return nil, nil
		}
		return []interface{}{!collectionToBool(input)}, nil
	default:
		return nil, fmt.Errorf("unknown function %s()", n.name)
	}
}

func (ctx *evalContext) filter(input []interface{}, predicate *node) ([]interface{}, error) {
	var result []interface{}
	for _, item := range input {
		outcome, err := ctx.eval(predicate, []interface{}{item})
		if err != nil {
			return nil, err
		}
		if collectionToBool(outcome) {
			result = append(result, item)
		}
	}
	return result, nil
}

// isTypeName reports whether the identifier names a FHIR resource type,
// which by convention starts with an uppercase letter.
func isTypeName(name string) bool {
	r := []rune(name)
	return len(r) > 0 && unicode.IsUpper(r[0])
}

// selectResources returns the resources of the given type reachable from root:
// the root itself if its resourceType matches, or the matching entry resources
// when root is a Bundle.
func selectResources(root interface{}, resourceType string) []interface{} {
	m, ok := root.(map[string]interface{})
	if !ok {
		return nil
	}
	rt, _ := m["resourceType"].(string)
	if rt == resourceType {
		return []interface{}{m}
	}
	if rt != "Bundle" {
		return nil
	}
	var result []interface{}
	for _, entry := range asCollection(m["entry"]) {
		entryMap, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		resource, ok := entryMap["resource"].(map[string]interface{})
		if !ok {
			continue
		}
		if entryType, _ := resource["resourceType"].(string); entryType == resourceType {
			result = append(result, resource)
		}
	}
	return result
}

// navigateField selects the named field from every item in the collection,
// flattening arrays. Items without the field contribute nothing.
func navigateField(input []interface{}, name string) []interface{} {
	var result []interface{}
	for _, item := range input {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		value, ok := m[name]
		if !ok || value == nil {
			continue
		}
		if array, ok := value.([]interface{}); ok {
			result = append(result, array...)
		} else {
			result = append(result, value)
		}
	}
	return result
}

func asCollection(value interface{}) []interface{} {
	if value == nil {
		return nil
	}
	if array, ok := value.([]interface{}); ok {
		return array
	}
	return []interface{}{value}
}

// collectionToBool converts a collection to a boolean following FHIRPath
// singleton evaluation: empty is false, a singleton boolean is its value,
// anything else present is true.
func collectionToBool(c []interface{}) bool {
	switch len(c) {
	case 0:
		return false
	case 1:
		if b, ok := c[0].(bool); ok {
			return b
		}
		return c[0] != nil
	default:
		return true
	}
}

func collectionsEqual(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valuesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	if aNum, aOK := toFloat(a); aOK {
		bNum, bOK := toFloat(b)
		return bOK && aNum == bNum
	}
	if aStr, ok := a.(string); ok {
		bStr, bOK := b.(string)
		return bOK && aStr == bStr
	}
	if aBool, ok := a.(bool); ok {
		bBool, bOK := b.(bool)
		return bOK && aBool == bBool
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
