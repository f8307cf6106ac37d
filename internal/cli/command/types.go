package command

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	FieldInt64
)

// Location says where a field is sent.
type Location int

const (
	InPath Location = iota
	InQuery
)

// Target names the service base URL a command is sent to.
type Target string

const (
	TargetProblem    Target = "problem"
	TargetSubmission Target = "submission"
	TargetExecution  Target = "execution"
	TargetUser       Target = "user"
)

// Field defines a CLI input field. Wire is the path placeholder or query name and
// defaults to Name.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Type     FieldType
	In       Location
	Wire     string
	Required bool
	// Default fills an optional field that was not given.
	Default string
}

func (f Field) wire() string {
	if f.Wire != "" {
		return f.Wire
	}
	return f.Name
}

// Command defines a CLI command binding.
type Command struct {
	Service      string
	Action       string
	Summary      string
	Method       string
	PathTemplate string
	Target       Target
	RequiresAuth bool
	Fields       []Field
}

// Key is the "service action" lookup key.
func (c Command) Key() string {
	return c.Service + " " + c.Action
}

// Usage renders the command with its fields.
func (c Command) Usage() string {
	var b strings.Builder
	b.WriteString(c.Key())
	for _, f := range c.Fields {
		if f.Required {
			fmt.Fprintf(&b, " %s=<%s>", f.Name, f.Prompt)
		} else {
			fmt.Fprintf(&b, " [%s=<%s>]", f.Name, f.Prompt)
		}
	}
	return b.String()
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method   string
	Path     string
	Query    url.Values
	Target   Target
	SkipAuth bool
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// ParseParams splits key=value tokens.
func ParseParams(tokens []string) (Params, error) {
	params := Params{}
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param: %s", token)
		}
		params.Set(key, value)
	}
	return params, nil
}

func ParseInt64(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func ParseInt(value string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	return int(n), err
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}
