// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command apiai talks to an API.ai agent from the terminal and can serve a
// local fake agent for testing.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ManuGH/apiai"
	"github.com/ManuGH/apiai/internal/config"
	applog "github.com/ManuGH/apiai/internal/log"
	"github.com/ManuGH/apiai/internal/telemetry"
	"github.com/ManuGH/apiai/internal/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

const serviceName = "apiai"

// app carries flag values and resolved state shared by all commands.
type app struct {
	configPath string
	logLevel   string
	token      string
	baseURL    string
	lang       string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	getenv func(string) string

	cfg    config.Config
	logger zerolog.Logger
	tp     *telemetry.Provider
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, errOut: errOut, getenv: os.Getenv}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	return 0
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:                "apiai",
		Short:              "Talk to an API.ai agent from the terminal",
		Long:               "Sends queries and events to an API.ai agent. Without a subcommand an interactive session starts.",
		Args:               cobra.NoArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
		RunE:               a.runREPL,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to config file (YAML)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.token, "token", "", "client access token (overrides "+config.EnvAccessToken+")")
	pf.StringVar(&a.baseURL, "base-url", "", "API base URL (overrides "+config.EnvBaseURL+")")
	pf.StringVar(&a.lang, "lang", "", "query language code, e.g. en or pt-BR; auto derives it from $LANG")

	root.AddCommand(
		a.replCmd(),
		a.queryCmd(),
		a.eventCmd(),
		a.batchCmd(),
		a.pingCmd(),
		a.mockCmd(),
		a.versionCmd(),
	)
	return root
}

// setup resolves configuration (defaults, file, env, flags) and initialises
// logging and tracing.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader(a.configPath).Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("token") {
		cfg.AccessToken = a.token
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = a.baseURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("lang") {
		lang, err := a.parseLang()
		if err != nil {
			return err
		}
		cfg.Language = lang
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	applog.Reconfigure(applog.Config{
		Level:   cfg.LogLevel,
		Output:  a.errOut,
		Service: serviceName,
		Version: version.Version,
	})
	a.logger = applog.WithComponent("cli")
	a.logger.Debug().
		Interface("config", config.MaskSecrets(cfg)).
		Str(applog.FieldBaseURL, config.MaskURL(cfg.BaseURL)).
		Msg("configuration loaded")

	tp, err := telemetry.NewProvider(cmd.Context(), cfg.TelemetryOptions(serviceName, version.Version))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.tp = tp
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tp.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("tracer shutdown")
	}
	return nil
}

func (a *app) parseLang() (apiai.Language, error) {
	if a.lang != "auto" {
		return apiai.ParseLanguage(a.lang)
	}
	return localeLanguage(a.getenv("LC_ALL"), a.getenv("LANG")), nil
}

// localeLanguage maps POSIX locales such as "pt_BR.UTF-8" to the closest
// supported language. The first parseable locale wins.
func localeLanguage(locales ...string) apiai.Language {
	for _, loc := range locales {
		loc, _, _ = strings.Cut(loc, ".")
		loc, _, _ = strings.Cut(loc, "@")
		if loc == "" || loc == "C" || loc == "POSIX" {
			continue
		}
		tag, err := language.Parse(strings.ReplaceAll(loc, "_", "-"))
		if err != nil {
			continue
		}
		lang, _ := apiai.MatchLanguage(tag)
		return lang
	}
	return apiai.DefaultLanguage
}

func (a *app) client() (*apiai.Client, error) {
	if a.cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w (use --token or %s)", apiai.ErrMissingToken, config.EnvAccessToken)
	}
	logger := applog.WithComponent("apiai")
	return apiai.New(a.cfg.AccessToken, a.cfg.ClientOptions(&logger))
}
