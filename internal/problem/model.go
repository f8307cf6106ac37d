// Package problem reads the problem catalog: questions, tags, testcases and solutions.
package problem

import "strings"

// Difficulty levels as served by the catalog.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// TestCaseTypeDefault marks a testcase the editor shows and runs.
const TestCaseTypeDefault = "DEFAULT"

// Summary is one row of the question listing.
type Summary struct {
	ID               int64    `json:"id"`
	Title            string   `json:"questionTitle"`
	Difficulty       string   `json:"difficultyLevel"`
	Tags             []string `json:"tags"`
	Company          string   `json:"company"`
	AcceptanceRate   float64  `json:"acceptanceRate"`
	TotalSubmissions int64    `json:"totalSubmissions"`
}

// Parameter is one argument of the function a solution implements.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Metadata describes how a question is executed in one language.
type Metadata struct {
	Language     string      `json:"language"`
	FunctionName string      `json:"functionName"`
	ReturnType   string      `json:"returnType"`
	Parameters   []Parameter `json:"parameters"`
	CodeTemplate string      `json:"codeTemplate"`
}

// Question is the full problem statement.
type Question struct {
	ID                   int64      `json:"id"`
	Title                string     `json:"questionTitle"`
	Description          string     `json:"questionDescription"`
	IsOutputOrderMatters bool       `json:"isOutputOrderMatters"`
	Tags                 []string   `json:"tags"`
	Difficulty           string     `json:"difficultyLevel"`
	Company              string     `json:"company"`
	Constraints          string     `json:"constraints"`
	MetadataList         []Metadata `json:"metadataList"`
}

// MetadataFor returns the metadata for language, compared case-insensitively.
func (q Question) MetadataFor(language string) (Metadata, bool) {
	for _, m := range q.MetadataList {
		if strings.EqualFold(m.Language, language) {
			return m, true
		}
	}
	return Metadata{}, false
}

// Languages lists the languages the question can be solved in, lowercased.
func (q Question) Languages() []string {
	out := make([]string, 0, len(q.MetadataList))
	for _, m := range q.MetadataList {
		out = append(out, strings.ToLower(m.Language))
	}
	return out
}

// TestCase is a served testcase.
type TestCase struct {
	ID             int64  `json:"id"`
	QuestionID     int64  `json:"questionId"`
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	OrderIndex     int    `json:"orderIndex"`
	IsHidden       bool   `json:"isHidden"`
	Type           string `json:"type"`
}

// Visible reports whether the testcase belongs in the editor. Cases without a type
// fall back to the hidden flag.
func (tc TestCase) Visible() bool {
	if tc.Type == "" {
		return !tc.IsHidden
	}
	return strings.EqualFold(tc.Type, TestCaseTypeDefault)
}

// Solution is a reference solution.
type Solution struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Language    string `json:"language"`
	Explanation string `json:"explanation"`
	QuestionID  int64  `json:"questionId"`
}

// Tag is a question topic.
type Tag struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Page is a page of results.
type Page[T any] struct {
	Content  []T `json:"content"`
	Pageable struct {
		PageNumber int `json:"pageNumber"`
		PageSize   int `json:"pageSize"`
	} `json:"pageable"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Last          bool  `json:"last"`
	First         bool  `json:"first"`
}

// Filters narrows the question listing. Zero values are omitted.
type Filters struct {
	Page       *int
	Size       *int
	Difficulty string
	Tag        string
	Search     string
	Company    string
}
