package command

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// Registry returns the raw service commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "problem",
			Action:       "list",
			Summary:      "list questions",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/questions",
			Target:       TargetProblem,
			Fields: []Field{
				{Name: "page", Prompt: "page", Type: FieldInt, In: InQuery, Default: "0"},
				{Name: "size", Prompt: "size", Type: FieldInt, In: InQuery, Default: "20"},
				{Name: "difficulty", Prompt: "Easy|Medium|Hard", Type: FieldString, In: InQuery},
				{Name: "tag", Prompt: "tag", Type: FieldString, In: InQuery},
				{Name: "search", Aliases: []string{"q"}, Prompt: "search text", Type: FieldString, In: InQuery},
				{Name: "company", Prompt: "company", Type: FieldString, In: InQuery},
			},
		},
		{
			Service:      "problem",
			Action:       "tags",
			Summary:      "list tags",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/tags",
			Target:       TargetProblem,
		},
		{
			Service:      "problem",
			Action:       "solutions",
			Summary:      "list reference solutions",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/solutions/question/:id",
			Target:       TargetProblem,
			Fields: []Field{
				{Name: "id", Aliases: []string{"question_id"}, Prompt: "question_id", Type: FieldInt64, In: InPath, Required: true},
			},
		},
		{
			Service:      "submission",
			Action:       "get",
			Summary:      "fetch one submission",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/submissions/:id",
			Target:       TargetSubmission,
			RequiresAuth: true,
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission_id"}, Prompt: "submission_id", Type: FieldString, In: InPath, Required: true},
			},
		},
		{
			Service:      "submission",
			Action:       "list",
			Summary:      "list a user's submissions",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/submissions/user/:user_id",
			Target:       TargetSubmission,
			RequiresAuth: true,
			Fields: []Field{
				{Name: "user_id", Prompt: "user_id", Type: FieldString, In: InPath, Required: true},
				{Name: "page", Prompt: "page", Type: FieldInt, In: InQuery, Default: "0"},
				{Name: "size", Prompt: "size", Type: FieldInt, In: InQuery, Default: "20"},
				{Name: "question_id", Prompt: "question_id", Type: FieldInt64, In: InQuery, Wire: "questionId"},
			},
		},
		{
			Service:      "user",
			Action:       "profile",
			Summary:      "fetch a user profile",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/user/profile/:user_id",
			Target:       TargetUser,
			RequiresAuth: true,
			Fields: []Field{
				{Name: "user_id", Prompt: "user_id", Type: FieldString, In: InPath, Required: true},
				{Name: "page", Prompt: "page", Type: FieldInt, In: InQuery, Default: "0"},
				{Name: "size", Prompt: "size", Type: FieldInt, In: InQuery, Default: "10"},
			},
		},
		{
			Service:      "user",
			Action:       "heatmap",
			Summary:      "fetch a submission heatmap",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/user/heatmap/:user_id",
			Target:       TargetUser,
			RequiresAuth: true,
			Fields: []Field{
				{Name: "user_id", Prompt: "user_id", Type: FieldString, In: InPath, Required: true},
				{Name: "year", Prompt: "year", Type: FieldInt, In: InQuery},
			},
		},
		{
			Service:      "exec",
			Action:       "status",
			Summary:      "execution engine status",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/execution/status/:id",
			Target:       TargetExecution,
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission_id"}, Prompt: "submission_id", Type: FieldString, In: InPath, Required: true},
			},
		},
		{
			Service:      "exec",
			Action:       "results",
			Summary:      "execution engine results",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/execution/results/:id",
			Target:       TargetExecution,
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission_id"}, Prompt: "submission_id", Type: FieldString, In: InPath, Required: true},
			},
		},
		{
			Service:      "exec",
			Action:       "cancel",
			Summary:      "cancel an execution",
			Method:       http.MethodDelete,
			PathTemplate: "/api/v1/execution/cancel/:id",
			Target:       TargetExecution,
			Fields: []Field{
				{Name: "id", Aliases: []string{"submission_id"}, Prompt: "submission_id", Type: FieldString, In: InPath, Required: true},
			},
		},
		{
			Service:      "exec",
			Action:       "health",
			Summary:      "execution engine health",
			Method:       http.MethodGet,
			PathTemplate: "/api/v1/execution/health",
			Target:       TargetExecution,
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// Sorted returns the commands ordered by key.
func Sorted(commands map[string]Command) []Command {
	out := make([]Command, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Missing returns the required fields params does not carry.
func Missing(cmd Command, params Params) []Field {
	params.Canonicalize(cmd.Fields)
	var out []Field
	for _, field := range cmd.Fields {
		if field.Required && strings.TrimSpace(params.Get(field.Name)) == "" {
			out = append(out, field)
		}
	}
	return out
}

// BuildRequest creates the request spec for cmd.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	path := cmd.PathTemplate
	query := url.Values{}
	for _, field := range cmd.Fields {
		value := strings.TrimSpace(params.Get(field.Name))
		if value == "" {
			value = field.Default
		}
		if value == "" {
			if field.Required {
				return RequestSpec{}, fmt.Errorf("missing parameter: %s", field.Name)
			}
			continue
		}
		if err := checkType(field, value); err != nil {
			return RequestSpec{}, err
		}
		switch field.In {
		case InPath:
			placeholder := ":" + field.wire()
			if !strings.Contains(path, placeholder) {
				return RequestSpec{}, fmt.Errorf("path has no placeholder for %s", field.Name)
			}
			path = strings.ReplaceAll(path, placeholder, url.PathEscape(value))
		case InQuery:
			query.Set(field.wire(), value)
		}
	}

	return RequestSpec{
		Method:   cmd.Method,
		Path:     path,
		Query:    query,
		Target:   cmd.Target,
		SkipAuth: !cmd.RequiresAuth,
	}, nil
}

func checkType(field Field, value string) error {
	switch field.Type {
	case FieldInt:
		if _, err := ParseInt(value); err != nil {
			return fmt.Errorf("invalid %s: %w", field.Name, err)
		}
	case FieldInt64:
		if _, err := ParseInt64(value); err != nil {
			return fmt.Errorf("invalid %s: %w", field.Name, err)
		}
	}
	return nil
}
