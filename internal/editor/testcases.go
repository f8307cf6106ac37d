// Package editor holds the state of one problem being edited: code, language and the
// unified list of default and user-added testcases.
package editor

import (
	"algocrack/internal/problem"
	"algocrack/internal/submission/model"
)

// TestCase is one editable testcase. A nil ID marks a user-added case.
type TestCase struct {
	ID            *int64
	Input         string
	OriginalInput *string
	IsModified    bool
	IsUserAdded   bool
}

// TestCases reconciles served default testcases with user edits and additions.
// Defaults can be edited and reset but never removed; user-added cases can be removed
// but have nothing to reset to. It is not safe for concurrent use.
type TestCases struct {
	cases    []TestCase
	original []TestCase
	active   int
}

// NewTestCases initialises the list from served testcases.
func NewTestCases(served []problem.TestCase) *TestCases {
	tc := &TestCases{}
	tc.Initialize(served)
	return tc
}

// Initialize replaces the list with served defaults and selects the first entry.
func (t *TestCases) Initialize(served []problem.TestCase) {
	t.original = make([]TestCase, 0, len(served))
	for _, s := range served {
		id, input := s.ID, s.Input
		t.original = append(t.original, TestCase{ID: &id, Input: input, OriginalInput: &input})
	}
	t.cases = cloneCases(t.original)
	t.active = 0
}

// Len returns the number of testcases.
func (t *TestCases) Len() int {
	return len(t.cases)
}

// All returns a copy of the list.
func (t *TestCases) All() []TestCase {
	return cloneCases(t.cases)
}

// At returns the testcase at index.
func (t *TestCases) At(index int) (TestCase, bool) {
	if index < 0 || index >= len(t.cases) {
		return TestCase{}, false
	}
	return t.cases[index], true
}

// Active returns the selected index.
func (t *TestCases) Active() int {
	return t.active
}

// SetActive selects index. Out-of-range indexes are ignored.
func (t *TestCases) SetActive(index int) bool {
	if index < 0 || index >= len(t.cases) {
		return false
	}
	t.active = index
	return true
}

// UpdateInput replaces the input at index. A default entry is modified exactly when
// the text differs from what was served.
func (t *TestCases) UpdateInput(index int, input string) bool {
	if index < 0 || index >= len(t.cases) {
		return false
	}
	tc := &t.cases[index]
	tc.Input = input
	tc.IsModified = !tc.IsUserAdded && (tc.OriginalInput == nil || input != *tc.OriginalInput)
	return true
}

// Add appends a user-added testcase and selects it.
func (t *TestCases) Add(input string) int {
	t.cases = append(t.cases, TestCase{Input: input, IsUserAdded: true})
	t.active = len(t.cases) - 1
	return t.active
}

// Remove deletes a user-added testcase. Defaults are left in place.
func (t *TestCases) Remove(index int) bool {
	if index < 0 || index >= len(t.cases) || !t.cases[index].IsUserAdded {
		return false
	}
	t.cases = append(t.cases[:index], t.cases[index+1:]...)
	if t.active > len(t.cases)-1 {
		t.active = len(t.cases) - 1
	}
	if t.active < 0 {
		t.active = 0
	}
	return true
}

// Reset restores a default testcase to its served input. User-added cases are untouched.
func (t *TestCases) Reset(index int) bool {
	if index < 0 || index >= len(t.cases) || t.cases[index].IsUserAdded {
		return false
	}
	tc := &t.cases[index]
	if tc.OriginalInput != nil {
		tc.Input = *tc.OriginalInput
	}
	tc.IsModified = false
	return true
}

// ResetAll restores the served list, dropping every edit and addition.
func (t *TestCases) ResetAll() {
	t.cases = cloneCases(t.original)
	t.active = 0
}

// SerializeForRun returns the inputs as currently edited, defaults first then
// user-added cases in insertion order.
func (t *TestCases) SerializeForRun() []model.TestCaseInput {
	out := make([]model.TestCaseInput, 0, len(t.cases))
	for _, tc := range t.cases {
		out = append(out, model.TestCaseInput{Input: tc.Input})
	}
	return out
}

func cloneCases(in []TestCase) []TestCase {
	out := make([]TestCase, len(in))
	copy(out, in)
	return out
}
