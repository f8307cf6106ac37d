// Package repl is the interactive editor shell: it opens problems, edits testcases,
// runs and submits code, and exposes the raw service commands.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"algocrack/internal/auth"
	"algocrack/internal/cli/app"
	"algocrack/internal/cli/command"
	"algocrack/internal/cli/render"
	"algocrack/internal/client/transport"
	"algocrack/internal/editor"
	"algocrack/internal/problem"
	"algocrack/internal/submission/api"
	"algocrack/internal/submission/model"
	"algocrack/internal/submission/store"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"go.uber.org/zap"
)

const prompt = "algocrack> "

var errExit = errors.New("exit")

// LineReader supplies input lines, both commands and prompted values.
type LineReader interface {
	Readline() (string, error)
}

type handler func(ctx context.Context, args []string) error

// Session holds REPL state.
type Session struct {
	app      *app.App
	editor   *editor.Session
	commands map[string]command.Command
	builtins map[string]handler
	out      io.Writer
	render   *render.Renderer
	input    LineReader

	mu         sync.Mutex
	lastStatus model.Status
}

// Option configures a Session.
type Option func(*Session)

// WithInput reads commands and prompted values from r instead of a terminal.
func WithInput(r LineReader) Option {
	return func(s *Session) { s.input = r }
}

// WithRenderOptions configures the renderer.
func WithRenderOptions(opts ...render.Option) Option {
	return func(s *Session) { s.render = render.New(s.out, opts...) }
}

func New(a *app.App, out io.Writer, opts ...Option) *Session {
	s := &Session{
		app:      a,
		editor:   editor.NewSession(),
		commands: command.Registry(),
		out:      &lockedWriter{w: out},
	}
	s.render = render.New(s.out)
	for _, opt := range opts {
		opt(s)
	}
	s.builtins = map[string]handler{
		"help":     s.help,
		"login":    s.login,
		"logout":   s.logout,
		"whoami":   s.whoami,
		"oauth":    s.oauth,
		"token":    s.acceptToken,
		"problems": s.problems,
		"open":     s.open,
		"lang":     s.lang,
		"code":     s.code,
		"tc":       s.testcases,
		"run":      s.run,
		"submit":   s.submit,
		"status":   s.status,
		"history":  s.history,
		"profile":  s.profile,
		"health":   s.health,
		"legacy":   s.legacy,
		"set":      s.set,
		"show":     s.show,
	}
	a.Actions.State(s.editor.ID()).OnChange(s.onChange)
	return s
}

// Editor returns the session's editor.
func (s *Session) Editor() *editor.Session {
	return s.editor
}

// Run reads commands until exit or end of input.
func (s *Session) Run(ctx context.Context) error {
	if s.input == nil {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          prompt,
			HistoryFile:     historyPath(s.app.Config.TokenStatePath),
			AutoComplete:    s.completer(),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("init readline failed: %w", err)
		}
		defer func() { _ = rl.Close() }()
		s.input = rl
	}
	defer s.app.Actions.Close(s.editor.ID())

	for {
		line, err := s.input.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		err = s.Execute(ctx, line)
		if errors.Is(err, errExit) {
			s.printLine("bye")
			return nil
		}
		if err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func historyPath(statePath string) string {
	if statePath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(statePath), "history")
}

func (s *Session) completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("tc", readline.PcItem("list"), readline.PcItem("add"), readline.PcItem("edit"),
			readline.PcItem("rm"), readline.PcItem("reset"), readline.PcItem("reset-all"), readline.PcItem("select")),
		readline.PcItem("code", readline.PcItem("show"), readline.PcItem("load"), readline.PcItem("save"), readline.PcItem("template")),
		readline.PcItem("exit"),
	}
	for name := range s.builtins {
		if name != "tc" && name != "code" {
			items = append(items, readline.PcItem(name))
		}
	}
	services := map[string][]readline.PrefixCompleterInterface{}
	for _, cmd := range command.Sorted(s.commands) {
		services[cmd.Service] = append(services[cmd.Service], readline.PcItem(cmd.Action))
	}
	for service, actions := range services {
		items = append(items, readline.PcItem(service, actions...))
	}
	return readline.NewPrefixCompleter(items...)
}

// Execute runs one command line. A command rejected with 401 is remembered and replayed
// after the next successful login.
func (s *Session) Execute(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	name := strings.ToLower(tokens[0])
	if name == "exit" || name == "quit" {
		return errExit
	}
	if name != "login" {
		s.app.Navigator.SetLocation(line)
	}
	ctx = transport.NewTrace(logger.WithSession(ctx, s.editor.ID()))

	if h, ok := s.builtins[name]; ok {
		err = h(ctx, tokens[1:])
	} else {
		err = s.raw(ctx, tokens)
	}
	if pkgerrors.Is(err, pkgerrors.Unauthorized) && s.app.Navigator.Pending() {
		s.printLine("sign-in required: run `login`, the command will be retried afterwards")
	}
	return err
}

func (s *Session) help(_ context.Context, _ []string) error {
	s.printLine("session:  login [email=..] [password=..] | logout | whoami | oauth [redirect=..] | token <jwt>")
	s.printLine("catalog:  problems [page=] [size=] [difficulty=] [tag=] [search=] [company=] | open <id>")
	s.printLine("editor:   lang <language> | code show|load <file>|save <file>|template")
	s.printLine("          tc [list] | tc add <input> | tc edit <n> <input> | tc rm <n> | tc reset <n> | tc reset-all | tc select <n>")
	s.printLine("judge:    run | submit | status | legacy | history [page=] [size=] [question_id=]")
	s.printLine("account:  profile [year=] | health")
	s.printLine("system:   set base <url> | set timeout <dur> | show token|config | help | exit")
	s.printLine("raw service commands:")
	for _, cmd := range command.Sorted(s.commands) {
		s.printLine("  %-60s %s", cmd.Usage(), cmd.Summary)
	}
	return nil
}

func (s *Session) login(ctx context.Context, args []string) error {
	params, err := command.ParseParams(args)
	if err != nil {
		return err
	}
	for _, field := range []string{"email", "password"} {
		if params.Get(field) == "" {
			value, err := s.promptValue(field)
			if err != nil {
				return err
			}
			params.Set(field, value)
		}
	}
	st, err := s.app.Auth.SignIn(ctx, auth.Credentials{Email: params.Get("email"), Password: params.Get("password")})
	if err != nil {
		return err
	}
	s.printLine("signed in as %s (user %s, %s)", st.Email, st.UserID, st.Role)
	return s.replay(ctx)
}

func (s *Session) acceptToken(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: token <jwt>")
	}
	st, err := s.app.Auth.Accept(args[0])
	if err != nil {
		return err
	}
	s.printLine("signed in as %s (user %s)", st.Email, st.UserID)
	return s.replay(ctx)
}

func (s *Session) replay(ctx context.Context) error {
	next, ok := s.app.Navigator.TakeNext()
	if !ok {
		return nil
	}
	s.printLine("retrying: %s", next)
	return s.Execute(ctx, next)
}

func (s *Session) logout(ctx context.Context, _ []string) error {
	if err := s.app.Auth.Logout(ctx); err != nil {
		return err
	}
	s.printLine("signed out")
	return nil
}

func (s *Session) whoami(_ context.Context, _ []string) error {
	st := s.app.Tokens.State()
	if st.AccessToken == "" {
		s.printLine("not signed in")
		return nil
	}
	expires := "never"
	if !st.ExpiresAt.IsZero() {
		expires = st.ExpiresAt.Local().Format(time.RFC3339)
	}
	s.printLine("user %s  %s  role %s  expires %s", st.UserID, st.Email, st.Role, expires)
	return nil
}

func (s *Session) oauth(_ context.Context, args []string) error {
	params, err := command.ParseParams(args)
	if err != nil {
		return err
	}
	redirect := params.Get("redirect")
	if redirect == "" {
		redirect = "http://localhost:3000/oauth2/success"
	}
	target, err := auth.OAuthURL(s.app.Config.Services.Gateway, redirect, params.Get("next"))
	if err != nil {
		return err
	}
	s.printLine("open in a browser, then paste the returned token with `token <jwt>`:")
	s.printLine("%s", target)
	return nil
}

func (s *Session) problems(ctx context.Context, args []string) error {
	params, err := command.ParseParams(args)
	if err != nil {
		return err
	}
	f := problem.Filters{
		Difficulty: params.Get("difficulty"),
		Tag:        params.Get("tag"),
		Search:     params.Get("search"),
		Company:    params.Get("company"),
	}
	if v := params.Get("page"); v != "" {
		page, err := command.ParseInt(v)
		if err != nil {
			return fmt.Errorf("invalid page: %w", err)
		}
		f.Page = &page
	}
	if v := params.Get("size"); v != "" {
		size, err := command.ParseInt(v)
		if err != nil {
			return fmt.Errorf("invalid size: %w", err)
		}
		f.Size = &size
	}
	page, err := s.app.Catalog.List(ctx, f)
	if err != nil {
		return err
	}
	s.render.ProblemPage(page)
	return nil
}

func (s *Session) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <problem id>")
	}
	id, err := command.ParseInt64(args[0])
	if err != nil {
		return fmt.Errorf("invalid problem id: %w", err)
	}
	q, err := s.app.Catalog.Question(ctx, id)
	if err != nil {
		return err
	}
	served, err := s.app.Catalog.TestCases(ctx, id)
	if err != nil {
		return err
	}
	s.app.Actions.State(s.editor.ID()).Reset()
	s.editor.SetProblem(q, served)
	s.render.Question(q)
	s.printLine("language %s", s.editor.Language())
	s.render.TestCases(s.editor.TestCases())
	return nil
}

func (s *Session) lang(_ context.Context, args []string) error {
	if len(args) != 1 {
		s.printLine("language %s", s.editor.Language())
		return nil
	}
	if !s.editor.SetLanguage(args[0]) {
		return pkgerrors.Newf(pkgerrors.LanguageMissing, "no %s template for this problem, code cleared", s.editor.Language())
	}
	s.printLine("language %s", s.editor.Language())
	return nil
}

func (s *Session) code(_ context.Context, args []string) error {
	action := "show"
	if len(args) > 0 {
		action = args[0]
	}
	switch action {
	case "show":
		s.printLine("%s", s.editor.Code())
	case "load":
		if len(args) != 2 {
			return fmt.Errorf("usage: code load <file>")
		}
		text, err := command.ReadFile(args[1])
		if err != nil {
			return err
		}
		s.editor.SetCode(text)
		s.printLine("loaded %d bytes", len(text))
	case "save":
		if len(args) != 2 {
			return fmt.Errorf("usage: code save <file>")
		}
		if err := os.WriteFile(args[1], []byte(s.editor.Code()), 0o644); err != nil {
			return fmt.Errorf("write file failed: %w", err)
		}
		s.printLine("saved to %s", args[1])
	case "template":
		meta, ok := s.editor.Metadata()
		if !ok {
			return pkgerrors.New(pkgerrors.LanguageMissing)
		}
		s.editor.SetCode(meta.CodeTemplate)
		s.printLine("code reset to the %s template", s.editor.Language())
	default:
		return fmt.Errorf("usage: code show|load <file>|save <file>|template")
	}
	return nil
}

func (s *Session) testcases(_ context.Context, args []string) error {
	tcs := s.editor.TestCases()
	action := "list"
	if len(args) > 0 {
		action = args[0]
	}
	index := func(pos int) (int, error) {
		if len(args) <= pos {
			return 0, fmt.Errorf("missing testcase number")
		}
		n, err := command.ParseInt(args[pos])
		if err != nil || n < 1 || n > tcs.Len() {
			return 0, fmt.Errorf("testcase number must be between 1 and %d", tcs.Len())
		}
		return n - 1, nil
	}

	switch action {
	case "list":
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("usage: tc add <input>")
		}
		tcs.Add(strings.Join(args[1:], " "))
	case "edit":
		i, err := index(1)
		if err != nil {
			return err
		}
		if len(args) < 3 {
			return fmt.Errorf("usage: tc edit <n> <input>")
		}
		tcs.UpdateInput(i, strings.Join(args[2:], " "))
	case "rm":
		i, err := index(1)
		if err != nil {
			return err
		}
		if !tcs.Remove(i) {
			return fmt.Errorf("only added testcases can be removed")
		}
	case "reset":
		i, err := index(1)
		if err != nil {
			return err
		}
		if !tcs.Reset(i) {
			return fmt.Errorf("only default testcases can be reset")
		}
	case "reset-all":
		tcs.ResetAll()
	case "select":
		i, err := index(1)
		if err != nil {
			return err
		}
		tcs.SetActive(i)
	default:
		return fmt.Errorf("unknown tc action %q", action)
	}
	s.render.TestCases(tcs)
	return nil
}

func (s *Session) run(ctx context.Context, _ []string) error {
	in, err := s.editor.RunInput()
	if err != nil {
		return err
	}
	snap, err := s.app.Actions.Run(ctx, s.editor.ID(), in)
	s.render.Snapshot(snap)
	return err
}

func (s *Session) legacy(ctx context.Context, _ []string) error {
	in, err := s.editor.RunInput()
	if err != nil {
		return err
	}
	snap, err := s.app.ExecuteLegacy(ctx, s.editor.ID(), in)
	s.render.Snapshot(snap)
	return err
}

func (s *Session) submit(ctx context.Context, _ []string) error {
	userID := s.app.Tokens.State().UserID
	if userID == "" {
		s.app.Navigator.Redirect(s.app.Client(command.TargetSubmission).SignInTarget())
		return pkgerrors.New(pkgerrors.Unauthorized)
	}
	in, err := s.editor.SubmitInput(userID)
	if err != nil {
		return err
	}
	s.setLastStatus("")
	snap, err := s.app.Actions.Submit(ctx, s.editor.ID(), in)
	s.render.Snapshot(snap)
	return err
}

func (s *Session) status(_ context.Context, _ []string) error {
	s.render.Snapshot(s.app.Actions.State(s.editor.ID()).Snapshot())
	return nil
}

func (s *Session) onChange(snap store.Snapshot) {
	if !snap.IsSubmitting || snap.Status == "" {
		return
	}
	s.mu.Lock()
	changed := snap.Status != s.lastStatus
	s.lastStatus = snap.Status
	s.mu.Unlock()
	if changed {
		s.printLine("  %s %s", snap.SubmissionID, snap.Status)
	}
}

func (s *Session) setLastStatus(status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastStatus = status
}

func (s *Session) history(ctx context.Context, args []string) error {
	params, err := command.ParseParams(args)
	if err != nil {
		return err
	}
	userID := params.Get("user_id")
	if userID == "" {
		userID = s.app.Tokens.State().UserID
	}
	q := api.HistoryQuery{}
	if v := params.Get("page"); v != "" {
		if q.Page, err = command.ParseInt(v); err != nil {
			return fmt.Errorf("invalid page: %w", err)
		}
	}
	if v := params.Get("size"); v != "" {
		if q.Size, err = command.ParseInt(v); err != nil {
			return fmt.Errorf("invalid size: %w", err)
		}
	}
	if v := params.Get("question_id"); v != "" {
		if q.QuestionID, err = command.ParseInt64(v); err != nil {
			return fmt.Errorf("invalid question_id: %w", err)
		}
	} else if cur, ok := s.editor.Question(); ok && params.Get("all") == "" {
		q.QuestionID = cur.ID
	}
	subs, err := s.app.Submissions.ListByUser(ctx, userID, q)
	if err != nil {
		return err
	}
	s.render.History(subs)
	return nil
}

func (s *Session) profile(ctx context.Context, args []string) error {
	params, err := command.ParseParams(args)
	if err != nil {
		return err
	}
	userID := params.Get("user_id")
	if userID == "" {
		userID = s.app.Tokens.State().UserID
	}
	year := 0
	if v := params.Get("year"); v != "" {
		if year, err = command.ParseInt(v); err != nil {
			return fmt.Errorf("invalid year: %w", err)
		}
	}
	overview, err := s.app.Profile.Overview(ctx, userID, year)
	if err != nil {
		return err
	}
	s.render.Overview(overview)
	return nil
}

func (s *Session) health(ctx context.Context, _ []string) error {
	h, err := s.app.Execution.Health(ctx)
	if err != nil {
		return err
	}
	s.render.Health(h)
	return nil
}

// raw sends a registry command and prints the response body.
func (s *Session) raw(ctx context.Context, tokens []string) error {
	if len(tokens) < 2 {
		return fmt.Errorf("unknown command %q, try help", tokens[0])
	}
	cmd, ok := s.commands[strings.ToLower(tokens[0]+" "+tokens[1])]
	if !ok {
		return fmt.Errorf("unknown command: %s %s", tokens[0], tokens[1])
	}
	params, err := command.ParseParams(tokens[2:])
	if err != nil {
		return err
	}
	s.applyParamShortcuts(cmd, params)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}

	client := s.app.Client(req.Target)
	opts := []transport.Option{transport.WithQuery(req.Query)}
	if req.SkipAuth {
		opts = append(opts, transport.WithSkipAuth())
	}
	resp, err := client.Do(ctx, req.Method, req.Path, nil, opts...)
	if err != nil {
		return err
	}
	s.render.JSON(resp.StatusCode, resp.Body)
	if err := client.Check(ctx, resp); err != nil {
		logger.Debug(ctx, "raw command failed", zap.String("command", cmd.Key()), zap.Error(err))
		return err
	}
	return nil
}

// applyParamShortcuts fills user_id from the signed-in session.
func (s *Session) applyParamShortcuts(cmd command.Command, params command.Params) {
	for _, field := range cmd.Fields {
		if field.Name == "user_id" && params.Get("user_id") == "" {
			if userID := s.app.Tokens.State().UserID; userID != "" {
				params.Set("user_id", userID)
			}
		}
	}
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range command.Missing(cmd, params) {
		value, err := s.promptValue(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) promptValue(label string) (string, error) {
	if s.input == nil {
		return "", fmt.Errorf("missing %s", label)
	}
	s.printLine("%s:", label)
	line, err := s.input.Readline()
	if err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (s *Session) set(_ context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set base <url> | set timeout <duration>")
	}
	switch args[0] {
	case "base":
		for _, client := range s.app.Clients {
			client.SetBaseURL(args[1])
		}
		s.printLine("base set to %s", args[1])
	case "timeout":
		dur, err := time.ParseDuration(args[1])
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		for _, client := range s.app.Clients {
			client.SetTimeout(dur)
		}
		s.printLine("timeout set to %s", dur)
	default:
		return fmt.Errorf("unknown set command %q", args[0])
	}
	return nil
}

func (s *Session) show(_ context.Context, args []string) error {
	what := ""
	if len(args) > 0 {
		what = args[0]
	}
	switch what {
	case "token":
		token := s.app.Tokens.Token()
		if token == "" {
			s.printLine("token: <empty>")
			return nil
		}
		if len(token) > 12 {
			token = token[:6] + "..." + token[len(token)-4:]
		}
		s.printLine("token: %s", token)
	case "config":
		cfg := s.app.Config
		s.printLine("gateway:        %s", cfg.Services.Gateway)
		s.printLine("problem:        %s", s.app.Client(command.TargetProblem).BaseURL())
		s.printLine("submission:     %s", s.app.Client(command.TargetSubmission).BaseURL())
		s.printLine("realtime:       %s %s", cfg.Realtime.Mode, cfg.Realtime.URL)
		s.printLine("tokenStatePath: %s", cfg.TokenStatePath)
	default:
		return fmt.Errorf("usage: show token|config")
	}
	return nil
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
