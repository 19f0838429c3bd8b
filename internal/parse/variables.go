package parse

import (
	"fmt"
	"regexp"
	"strings"
)

// UnknownType is reported when no concrete type could be determined.
const UnknownType = "Unknown"

// Variable is a local or global of the current frame.
type Variable struct {
	Name  string `json:"name" header:"NAME"`
	Type  string `json:"type" header:"TYPE"`
	Value string `json:"value" header:"VALUE"`
}

// Evaluator runs an expression in the inspected program and returns the
// console output it produced.
type Evaluator interface {
	Exec(expr string) []string
}

// variableLine matches "name = value" with an optional C type in parentheses:
//
//	n = (long) 10000000
//	names = ['sam', 'emma']
var variableLine = regexp.MustCompile(`^\W*(\w+)\s*=\s*(?:\(([^)]*)\)\s+)?(.*)$`)

// runtimeType matches the repr of a type object, e.g. <class 'float'>.
var runtimeType = regexp.MustCompile(`^<\w+ '(.*)'>`)

// Section headings printed by cy globals.
var globalsHeadings = map[string]bool{
	"Python globals:": true,
	"C globals:":      true,
}

// Parser converts cy locals/globals output into Variables, asking the
// inspected program for types that debug information does not give.
type Parser struct {
	eval Evaluator
}

// NewParser creates a Parser. eval may be nil, in which case runtime type
// queries resolve to UnknownType.
func NewParser(eval Evaluator) *Parser {
	return &Parser{eval: eval}
}

// Locals parses the console lines of cy locals.
func (p *Parser) Locals(lines []string) []Variable {
	var vars []Variable
	for _, line := range lines {
		if v, ok := p.variable(line); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

// Globals parses the console lines of cy globals, skipping section headings.
func (p *Parser) Globals(lines []string) []Variable {
	var vars []Variable
	for _, line := range lines {
		if globalsHeadings[strings.TrimSpace(line)] {
			continue
		}
		if v, ok := p.variable(line); ok {
			vars = append(vars, v)
		}
	}
	return vars
}

func (p *Parser) variable(line string) (Variable, bool) {
	m := variableLine.FindStringSubmatch(strings.TrimRight(line, " \t\r"))
	if m == nil {
		return Variable{}, false
	}

	name, staticType, value := m[1], strings.TrimSpace(m[2]), m[3]
	if value == "" {
		value = UnknownType
	}

	var typ string
	switch {
	case staticType == "":
		typ = p.InferType(name, value)
	case isGenericObject(staticType):
		typ = p.queryType(name)
	default:
		typ = "cy " + staticType
	}

	return Variable{Name: name, Type: typ, Value: value}, true
}

// isGenericObject reports whether a C type is the opaque Python object
// wrapper, which says nothing about the value's real type.
func isGenericObject(cType string) bool {
	return strings.Contains(cType, "Py") && strings.Contains(cType, "Object")
}

// InferType derives the type of name from its printed value when the value
// is a Python literal, and otherwise asks the inspected program.
func (p *Parser) InferType(name, value string) string {
	if value != "" && value != UnknownType {
		if typ, ok := LiteralType(value); ok {
			return typ
		}
	}
	return p.queryType(name)
}

// queryType evaluates type(name) in the inspected program.
func (p *Parser) queryType(name string) string {
	if p.eval == nil {
		return UnknownType
	}

	out := p.eval.Exec(fmt.Sprintf("type(%s)", name))
	for _, line := range out {
		if m := runtimeType.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1]
		}
	}
	return UnknownType
}
