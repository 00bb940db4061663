package store

import (
	"fmt"
	"strings"
)

type operation string

const (
	opCreate operation = "create"
	opPut    operation = "put"
	opRm     operation = "rm"
)

// directive is the single ":op relation {columns}" line a write script may carry.
type directive struct {
	op       operation
	relation string
	keys     []Column
	values   []Column
}

func (d *directive) columns() []Column {
	return append(append([]Column{}, d.keys...), d.values...)
}

type script struct {
	program   string
	directive *directive
}

// parseScript splits a script into its jq program and its optional directive.
func parseScript(text string) (script, error) {
	var (
		program []string
		result  script
	)
	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !isDirective(trimmed) {
			program = append(program, line)
			continue
		}
		if result.directive != nil {
			return script{}, fmt.Errorf("line %d: only one directive per script is allowed", i+1)
		}
		d, err := parseDirective(trimmed[1:])
		if err != nil {
			return script{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		result.directive = d
	}
	result.program = strings.TrimSpace(strings.Join(program, "\n"))

	switch {
	case result.directive == nil && result.program == "":
		return script{}, fmt.Errorf("empty script")
	case result.directive != nil && result.directive.op != opCreate && result.program == "":
		return script{}, fmt.Errorf(":%s needs a program producing rows", result.directive.op)
	}
	return result, nil
}

// isDirective reports whether a line starts with a known ":op ". Other lines starting with
// ":" belong to the jq program, e.g. a key/value split across lines.
func isDirective(line string) bool {
	for _, op := range []operation{opCreate, opPut, opRm} {
		if strings.HasPrefix(line, ":"+string(op)+" ") {
			return true
		}
	}
	return false
}

func parseDirective(text string) (*directive, error) {
	op, rest, _ := strings.Cut(text, " ")
	d := &directive{op: operation(op)}
	switch d.op {
	case opCreate, opPut, opRm:
	default:
		return nil, fmt.Errorf("unknown directive %q", ":"+op)
	}

	open := strings.Index(rest, "{")
	if open < 0 || !strings.HasSuffix(strings.TrimSpace(rest), "}") {
		return nil, fmt.Errorf(":%s: expected <relation> {columns}", op)
	}
	d.relation = strings.TrimSpace(rest[:open])
	if d.relation == "" {
		return nil, fmt.Errorf(":%s: missing relation name", op)
	}
	body := strings.TrimSpace(rest[open:])
	body = body[1 : len(body)-1]

	keyPart, valuePart, hasValues := strings.Cut(body, "=>")
	var err error
	if d.keys, err = parseColumns(keyPart); err != nil {
		return nil, err
	}
	if hasValues {
		if d.values, err = parseColumns(valuePart); err != nil {
			return nil, err
		}
	}
	if len(d.keys) == 0 {
		return nil, fmt.Errorf(":%s %s: no columns", op, d.relation)
	}
	return d, nil
}

func parseColumns(text string) ([]Column, error) {
	var columns []Column
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, typed := strings.Cut(part, ":")
		c := Column{Name: strings.TrimSpace(name), Type: TypeAny}
		if typed {
			t, err := parseColumnType(strings.TrimSpace(typ))
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", c.Name, err)
			}
			c.Type = t
		}
		if c.Name == "" {
			return nil, fmt.Errorf("empty column name")
		}
		columns = append(columns, c)
	}
	return columns, nil
}
