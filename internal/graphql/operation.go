package graphql

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/gqlparser/v2/ast"
	"github.com/dgraph-io/gqlparser/v2/parser"
)

// Operation is a parsed GraphQL document holding exactly one operation.
type Operation struct {
	Source string
	Name   string
	Kind   ast.Operation

	doc *ast.QueryDocument
	def *ast.OperationDefinition
}

func Parse(source string) (*Operation, error) {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: source})
	if gqlErr != nil {
		return nil, fmt.Errorf("parse operation: %w", gqlErr)
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("parse operation: expected exactly one operation, got %d", len(doc.Operations))
	}

	def := doc.Operations[0]
	kind := def.Operation
	if kind == "" {
		kind = ast.Query
	}

	return &Operation{
		Source: source,
		Name:   def.Name,
		Kind:   kind,
		doc:    doc,
		def:    def,
	}, nil
}

func MustParse(source string) *Operation {
	op, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return op
}

func (o *Operation) rootID() string {
	if o.Kind == ast.Mutation {
		return "ROOT_MUTATION"
	}
	return rootQueryID
}

// withDefaults fills variables the caller left out from the operation's
// declared default values.
func (o *Operation) withDefaults(vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	for _, def := range o.def.VariableDefinitions {
		if _, ok := out[def.Variable]; ok || def.DefaultValue == nil {
			continue
		}
		v, err := evalValue(def.DefaultValue, nil)
		if err != nil {
			return nil, fmt.Errorf("default for $%s: %w", def.Variable, err)
		}
		out[def.Variable] = v
	}
	return out, nil
}

// requestKey identifies an operation plus variables for dedupe within a
// prefetch pass. encoding/json sorts map keys so the key is stable.
func requestKey(op *Operation, vars map[string]any) string {
	b, err := json.Marshal(vars)
	if err != nil {
		return op.Source
	}
	return op.Source + "|" + string(b)
}

func evalValue(v *ast.Value, vars map[string]any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case ast.Variable:
		return vars[v.Raw], nil
	case ast.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ast.FloatValue:
		return strconv.ParseFloat(v.Raw, 64)
	case ast.StringValue, ast.BlockValue, ast.EnumValue:
		return v.Raw, nil
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.NullValue:
		return nil, nil
	case ast.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, child := range v.Children {
			item, err := evalValue(child.Value, vars)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case ast.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, child := range v.Children {
			item, err := evalValue(child.Value, vars)
			if err != nil {
				return nil, err
			}
			out[child.Name] = item
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value kind %v", v.Kind)
	}
}

// collectFields flattens inline fragments and fragment spreads. Type
// conditions are not checked; every branch is merged.
func collectFields(set ast.SelectionSet, doc *ast.QueryDocument) []*ast.Field {
	var fields []*ast.Field
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			fields = append(fields, s)
		case *ast.InlineFragment:
			fields = append(fields, collectFields(s.SelectionSet, doc)...)
		case *ast.FragmentSpread:
			for _, def := range doc.Fragments {
				if def.Name == s.Name {
					fields = append(fields, collectFields(def.SelectionSet, doc)...)
					break
				}
			}
		}
	}
	return fields
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// storageKey is the field's key inside a normalized record: the field name,
// plus its arguments as canonical JSON when it has any.
func storageKey(f *ast.Field, vars map[string]any) (string, error) {
	if len(f.Arguments) == 0 {
		return f.Name, nil
	}
	args := make(map[string]any, len(f.Arguments))
	for _, arg := range f.Arguments {
		v, err := evalValue(arg.Value, vars)
		if err != nil {
			return "", fmt.Errorf("argument %s.%s: %w", f.Name, arg.Name, err)
		}
		args[arg.Name] = v
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return f.Name + "(" + string(b) + ")", nil
}
