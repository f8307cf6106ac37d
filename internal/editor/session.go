package editor

import (
	"strings"

	"algocrack/internal/problem"
	"algocrack/internal/submission/lifecycle"
	pkgerrors "algocrack/pkg/errors"

	"github.com/google/uuid"
)

// DefaultLanguage is used when a problem carries no metadata.
const DefaultLanguage = "java"

// Session is one problem open in the editor.
type Session struct {
	id        string
	question  *problem.Question
	metadata  *problem.Metadata
	language  string
	code      string
	testcases *TestCases
}

func NewSession() *Session {
	return &Session{id: uuid.NewString(), language: DefaultLanguage, testcases: NewTestCases(nil)}
}

// ID identifies the session to the submission state and realtime manager.
func (s *Session) ID() string {
	return s.id
}

// SetProblem opens q with its first language's template and the served testcases.
func (s *Session) SetProblem(q problem.Question, served []problem.TestCase) {
	s.question = &q
	s.metadata = nil
	s.language = DefaultLanguage
	s.code = ""
	if len(q.MetadataList) > 0 {
		meta := q.MetadataList[0]
		s.metadata = &meta
		if meta.Language != "" {
			s.language = strings.ToLower(meta.Language)
		}
		s.code = meta.CodeTemplate
	}
	s.testcases.Initialize(served)
}

// SetLanguage switches language and loads its template. It reports false, leaving the
// code empty, when the problem has no template for the language.
func (s *Session) SetLanguage(language string) bool {
	s.language = strings.ToLower(strings.TrimSpace(language))
	if s.question == nil {
		return true
	}
	meta, ok := s.question.MetadataFor(s.language)
	if !ok {
		s.metadata = nil
		s.code = ""
		return false
	}
	s.metadata = &meta
	s.code = meta.CodeTemplate
	return true
}

func (s *Session) SetCode(code string) {
	s.code = code
}

func (s *Session) Code() string {
	return s.code
}

func (s *Session) Language() string {
	return s.language
}

// Question returns the open problem, if any.
func (s *Session) Question() (problem.Question, bool) {
	if s.question == nil {
		return problem.Question{}, false
	}
	return *s.question, true
}

// Metadata returns the execution metadata of the current language, if any.
func (s *Session) Metadata() (problem.Metadata, bool) {
	if s.metadata == nil {
		return problem.Metadata{}, false
	}
	return *s.metadata, true
}

func (s *Session) TestCases() *TestCases {
	return s.testcases
}

// RunInput shapes the current code and testcases for a run.
func (s *Session) RunInput() (lifecycle.RunInput, error) {
	if s.question == nil {
		return lifecycle.RunInput{}, pkgerrors.New(pkgerrors.ProblemNotLoaded)
	}
	return lifecycle.RunInput{
		QuestionID: s.question.ID,
		Language:   s.language,
		Code:       s.code,
		TestCases:  s.testcases.SerializeForRun(),
	}, nil
}

// SubmitInput shapes the current code for an official submission by userID.
func (s *Session) SubmitInput(userID string) (lifecycle.SubmitInput, error) {
	if s.question == nil {
		return lifecycle.SubmitInput{}, pkgerrors.New(pkgerrors.ProblemNotLoaded)
	}
	return lifecycle.SubmitInput{
		UserID:     userID,
		QuestionID: s.question.ID,
		Language:   s.language,
		Code:       s.code,
	}, nil
}

// Close clears the open problem, dropping its testcases.
func (s *Session) Close() {
	s.question = nil
	s.metadata = nil
	s.code = ""
	s.language = DefaultLanguage
	s.testcases.Initialize(nil)
}
