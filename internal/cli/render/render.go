// Package render prints catalog, editor and submission state to a terminal.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"algocrack/internal/editor"
	"algocrack/internal/execution"
	"algocrack/internal/problem"
	"algocrack/internal/profile"
	"algocrack/internal/submission/model"
	"algocrack/internal/submission/store"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var palette = map[string]lipgloss.Color{
	model.ColorGreen:  lipgloss.Color("#2ecc71"),
	model.ColorRed:    lipgloss.Color("#e74c3c"),
	model.ColorOrange: lipgloss.Color("#e67e22"),
	model.ColorBlue:   lipgloss.Color("#3498db"),
	model.ColorGray:   lipgloss.Color("#95a5a6"),
}

var difficultyColor = map[string]string{
	problem.DifficultyEasy:   model.ColorGreen,
	problem.DifficultyMedium: model.ColorOrange,
	problem.DifficultyHard:   model.ColorRed,
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(palette[model.ColorGray])
)

func colored(color, text string) string {
	c, ok := palette[color]
	if !ok {
		return text
	}
	return lipgloss.NewStyle().Foreground(c).Render(text)
}

// Renderer writes human-readable output.
type Renderer struct {
	out      io.Writer
	markdown *glamour.TermRenderer
	pretty   bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMarkdown renders problem descriptions through glamour with the given wrap width.
func WithMarkdown(width int) Option {
	return func(r *Renderer) {
		md, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err == nil {
			r.markdown = md
		}
	}
}

// WithPrettyJSON indents raw JSON responses.
func WithPrettyJSON(pretty bool) Option {
	return func(r *Renderer) { r.pretty = pretty }
}

func New(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{out: out}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Line(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(r.out, format+"\n", args...)
}

// Verdict returns the coloured label of v.
func Verdict(v model.Verdict) string {
	d := v.Display()
	return colored(d.Color, d.Label)
}

// Snapshot prints a run or submission state.
func (r *Renderer) Snapshot(s store.Snapshot) {
	kind := "submission"
	if s.IsRunning || (s.Verdict != nil && s.Verdict.IsRun()) {
		kind = "run"
	}
	id := s.SubmissionID
	if id == "" {
		id = "-"
	}
	r.Line("%s %s  %s %s", labelStyle.Render(kind), id, labelStyle.Render("status"), s.Status)
	if s.Verdict != nil {
		r.Line("%s", titleStyle.Render(Verdict(*s.Verdict)))
	}
	if s.PassedTestCases != nil && s.TotalTestCases != nil {
		r.Line("%s %d/%d", labelStyle.Render("passed"), *s.PassedTestCases, *s.TotalTestCases)
	}
	if s.RuntimeMs != nil {
		r.Line("%s %d ms", labelStyle.Render("runtime"), *s.RuntimeMs)
	}
	if s.MemoryKb != nil {
		r.Line("%s %d KB", labelStyle.Render("memory"), *s.MemoryKb)
	}
	if s.CompilationOutput != nil && *s.CompilationOutput != "" {
		r.Line("%s\n%s", labelStyle.Render("compiler output"), colored(model.ColorOrange, *s.CompilationOutput))
	}
	if s.ErrorMessage != nil && *s.ErrorMessage != "" {
		r.Line("%s %s", colored(model.ColorRed, "error"), *s.ErrorMessage)
	}
	for _, tc := range s.TestCaseResults {
		r.testCaseResult(tc)
	}
}

func (r *Renderer) testCaseResult(tc model.TestCaseResult) {
	mark := colored(model.ColorGray, "·")
	switch {
	case tc.Passed == nil:
	case *tc.Passed:
		mark = colored(model.ColorGreen, "✓")
	default:
		mark = colored(model.ColorRed, "✗")
	}
	r.Line("  %s case %d  %d ms", mark, tc.Index+1, tc.ExecutionTimeMs)
	if tc.Passed != nil && !*tc.Passed {
		r.Line("      output:   %s", tc.ActualOutput)
		if tc.ExpectedOutput != nil {
			r.Line("      expected: %s", *tc.ExpectedOutput)
		}
	}
	if tc.Error != nil && *tc.Error != "" {
		r.Line("      %s", colored(model.ColorOrange, *tc.Error))
	}
}

// ProblemPage prints a page of the question listing.
func (r *Renderer) ProblemPage(page problem.Page[problem.Summary]) {
	for _, q := range page.Content {
		r.Line("%5d  %-40s %s  %s", q.ID, q.Title, colored(difficultyColor[q.Difficulty], q.Difficulty), strings.Join(q.Tags, ","))
	}
	r.Line("%s %d/%d (%d total)", labelStyle.Render("page"), page.Pageable.PageNumber+1, page.TotalPages, page.TotalElements)
}

// Question prints a problem with its parsed description.
func (r *Renderer) Question(q problem.Question) {
	r.Line("%s  %s", titleStyle.Render(fmt.Sprintf("%d. %s", q.ID, q.Title)), colored(difficultyColor[q.Difficulty], q.Difficulty))
	if len(q.Tags) > 0 {
		r.Line("%s %s", labelStyle.Render("tags"), strings.Join(q.Tags, ", "))
	}
	content := problem.ParseDescription(q.Description)
	r.Line("%s", r.markdownText(content.Description))
	for _, ex := range content.Examples {
		r.Line("%s", titleStyle.Render(ex.Title))
		if ex.Input != "" {
			r.Line("  Input:  %s", ex.Input)
		}
		if ex.Output != "" {
			r.Line("  Output: %s", ex.Output)
		}
		if ex.Explanation != "" {
			r.Line("  Explanation: %s", ex.Explanation)
		}
	}
	if len(content.Constraints) > 0 {
		r.Line("%s", titleStyle.Render("Constraints"))
		for _, c := range content.Constraints {
			r.Line("  - %s", c)
		}
	}
	if langs := q.Languages(); len(langs) > 0 {
		r.Line("%s %s", labelStyle.Render("languages"), strings.Join(langs, ", "))
	}
}

func (r *Renderer) markdownText(text string) string {
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// TestCases prints the editor testcases. The active case is marked with '>', edited
// defaults with '~' and user-added cases with '+'.
func (r *Renderer) TestCases(tcs *editor.TestCases) {
	if tcs.Len() == 0 {
		r.Line("no testcases")
		return
	}
	for i, tc := range tcs.All() {
		cursor := " "
		if i == tcs.Active() {
			cursor = ">"
		}
		flag := " "
		switch {
		case tc.IsUserAdded:
			flag = colored(model.ColorBlue, "+")
		case tc.IsModified:
			flag = colored(model.ColorOrange, "~")
		}
		r.Line("%s%s case %d: %s", cursor, flag, i+1, strings.ReplaceAll(tc.Input, "\n", " | "))
	}
}

// History prints submissions newest first.
func (r *Renderer) History(subs []model.Submission) {
	if len(subs) == 0 {
		r.Line("no submissions")
		return
	}
	for _, s := range subs {
		verdict := string(s.Status)
		if s.Verdict != nil {
			verdict = Verdict(*s.Verdict)
		}
		queued := "-"
		if s.QueuedAt != nil {
			queued = s.QueuedAt.Time.Format("2006-01-02 15:04")
		}
		r.Line("%-38s q%-5d %-8s %s  %s", s.SubmissionID, s.QuestionID, s.Language, queued, verdict)
	}
}

// Overview prints a profile with its heatmap summary.
func (r *Renderer) Overview(o profile.Overview) {
	d := o.Profile.Details
	r.Line("%s  %s", titleStyle.Render(d.Name), labelStyle.Render(d.Rank))
	if d.Headline != "" {
		r.Line("%s", d.Headline)
	}
	st := o.Profile.Stats
	r.Line("%s %d/%d  (%s %d/%d  %s %d/%d  %s %d/%d)",
		labelStyle.Render("solved"), st.TotalSolved, st.TotalQuestions,
		colored(model.ColorGreen, "easy"), st.EasySolved, st.EasyTotal,
		colored(model.ColorOrange, "medium"), st.MediumSolved, st.MediumTotal,
		colored(model.ColorRed, "hard"), st.HardSolved, st.HardTotal)
	langs := append([]profile.LanguageStat(nil), o.Profile.LanguageStats...)
	sort.SliceStable(langs, func(i, j int) bool { return langs[i].ProblemsSolved > langs[j].ProblemsSolved })
	for _, l := range langs {
		r.Line("  %-10s %d", l.Language, l.ProblemsSolved)
	}
	for _, s := range o.Profile.RecentSubmissions {
		r.Line("  %s  %-30s %s", s.Timestamp, s.QuestionTitle, Verdict(model.Verdict(s.Verdict)))
	}
	if o.HeatmapErr != nil {
		r.Line("%s %v", labelStyle.Render("heatmap unavailable:"), o.HeatmapErr)
		return
	}
	h := o.Heatmap
	r.Line("%s %d submissions on %d days (%s to %s)", labelStyle.Render("activity"), h.TotalSubmissions, h.TotalActiveDays, h.From, h.To)
}

// Health prints the execution engine load.
func (r *Renderer) Health(h execution.Health) {
	status := colored(model.ColorRed, h.Status)
	if h.Up() {
		status = colored(model.ColorGreen, h.Status)
	}
	r.Line("%s %s  queue %d  workers %d  avg %.0f ms", labelStyle.Render("engine"), status, h.QueueSize, h.ActiveWorkers, h.AvgExecutionTimeMs)
}

// JSON prints a raw response body, indented when enabled and the body is JSON.
func (r *Renderer) JSON(status int, body []byte) {
	r.Line("%s %d", labelStyle.Render("HTTP"), status)
	if len(bytes.TrimSpace(body)) == 0 {
		return
	}
	if r.pretty && json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			r.Line("%s", buf.String())
			return
		}
	}
	r.Line("%s", string(body))
}
