package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"algocrack/internal/cli/app"
	"algocrack/internal/cli/command"
	"algocrack/internal/cli/render"
	"algocrack/internal/cli/repl"
	"algocrack/internal/client/config"
	"algocrack/internal/editor"
	"algocrack/internal/submission/store"
	pkgerrors "algocrack/pkg/errors"
	"algocrack/pkg/utils/logger"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/cli.yaml"

type rootFlags struct {
	configPath string
	envFile    string
	baseURL    string
	timeout    time.Duration
	statePath  string
	token      string
	realtime   string
	logLevel   string
}

type judgeFlags struct {
	problemID int64
	language  string
	codeFile  string
	cases     []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:           "algocrack",
		Short:         "Terminal client for the algocrack practice platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), flags)
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", defaultConfigPath, "Path to config file")
	pf.StringVar(&flags.envFile, "env", ".env", "Path to env file")
	pf.StringVar(&flags.baseURL, "base", "", "Override gateway URL")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Override HTTP timeout (e.g. 10s)")
	pf.StringVar(&flags.statePath, "state", "", "Override token state path")
	pf.StringVar(&flags.token, "token", "", "Use this access token")
	pf.StringVar(&flags.realtime, "realtime", "", "Realtime mode: stomp, kafka or off")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "repl",
			Short: "Start the interactive editor shell",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runREPL(cmd.Context(), flags)
			},
		},
		newJudgeCmd(flags, "run", "Run code against the problem's testcases"),
		newJudgeCmd(flags, "submit", "Submit code for official judging and wait for the verdict"),
		&cobra.Command{
			Use:   "health",
			Short: "Show the execution engine's health",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := setup(cmd.Context(), flags)
				if err != nil {
					return err
				}
				defer func() { _ = a.Close() }()
				h, err := a.Execution.Health(cmd.Context())
				if err != nil {
					return err
				}
				render.New(os.Stdout).Health(h)
				return nil
			},
		},
	)
	return rootCmd
}

func newJudgeCmd(root *rootFlags, action, short string) *cobra.Command {
	flags := &judgeFlags{}
	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJudge(cmd.Context(), root, flags, action)
		},
	}
	cmd.Flags().Int64VarP(&flags.problemID, "problem", "p", 0, "Problem id (required)")
	cmd.Flags().StringVarP(&flags.language, "lang", "l", "", "Language, defaults to the problem's first")
	cmd.Flags().StringVarP(&flags.codeFile, "file", "f", "", "Source file (required)")
	if action == "run" {
		cmd.Flags().StringArrayVarP(&flags.cases, "case", "c", nil, "Extra testcase input, repeatable")
	}
	_ = cmd.MarkFlagRequired("problem")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return cfg, err
	}
	if flags.baseURL != "" {
		// services that followed the gateway keep following it
		prev := cfg.Services.Gateway
		for _, url := range []*string{&cfg.Services.Problem, &cfg.Services.Submission, &cfg.Services.Execution} {
			if *url == prev {
				*url = flags.baseURL
			}
		}
		cfg.Services.Gateway = flags.baseURL
	}
	if flags.timeout > 0 {
		cfg.Timeout = flags.timeout
	}
	if flags.statePath != "" {
		cfg.TokenStatePath = flags.statePath
	}
	if flags.realtime != "" {
		cfg.Realtime.Mode = flags.realtime
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	config.ApplyDefaults(&cfg)
	return cfg, nil
}

func setup(ctx context.Context, flags *rootFlags) (*app.App, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if flags.token != "" {
		if _, err := a.Auth.Accept(flags.token); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	a.Auth.Restore(ctx)
	return a, nil
}

func runREPL(ctx context.Context, flags *rootFlags) error {
	a, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
		_ = logger.Sync()
	}()

	pretty := a.Config.PrettyJSON != nil && *a.Config.PrettyJSON
	session := repl.New(a, os.Stdout, repl.WithRenderOptions(render.WithMarkdown(100), render.WithPrettyJSON(pretty)))
	fmt.Fprintln(os.Stdout, "algocrack shell, type help for commands")
	return session.Run(ctx)
}

func runJudge(ctx context.Context, root *rootFlags, flags *judgeFlags, action string) error {
	a, err := setup(ctx, root)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
		_ = logger.Sync()
	}()

	q, err := a.Catalog.Question(ctx, flags.problemID)
	if err != nil {
		return err
	}
	served, err := a.Catalog.TestCases(ctx, flags.problemID)
	if err != nil {
		return err
	}
	session := editor.NewSession()
	session.SetProblem(q, served)
	if flags.language != "" {
		session.SetLanguage(flags.language)
	}
	code, err := command.ReadFile(flags.codeFile)
	if err != nil {
		return err
	}
	session.SetCode(code)
	for _, input := range flags.cases {
		session.TestCases().Add(input)
	}
	defer a.Actions.Close(session.ID())

	var snap store.Snapshot
	switch action {
	case "run":
		in, err := session.RunInput()
		if err != nil {
			return err
		}
		snap, err = a.Actions.Run(ctx, session.ID(), in)
		render.New(os.Stdout).Snapshot(snap)
		if err != nil {
			return err
		}
	case "submit":
		userID := a.Tokens.State().UserID
		if userID == "" {
			return pkgerrors.New(pkgerrors.Unauthorized).WithMessage("sign in first: algocrack repl, then login")
		}
		in, err := session.SubmitInput(userID)
		if err != nil {
			return err
		}
		snap, err = a.Actions.Submit(ctx, session.ID(), in)
		render.New(os.Stdout).Snapshot(snap)
		if err != nil {
			return err
		}
	}
	if snap.Verdict == nil || !snap.Verdict.Display().IsSuccess {
		return fmt.Errorf("%s did not pass", action)
	}
	return nil
}
