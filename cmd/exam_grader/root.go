package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonathan/exam-grader/internal/client"
	"github.com/jonathan/exam-grader/internal/observability"
)

const (
	defaultServerURL = "http://localhost:8000"
	envPrefix        = "EXAM_GRADER"
)

// app holds the settings shared by every client command.
type app struct {
	v       *viper.Viper
	cfgFile string
	out     io.Writer
	in      io.Reader
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "exam_grader",
		Short:         "Exam grading API server and client",
		Long:          "exam_grader serves the exam grading REST API and drives it from the command line: exams, scanned copies, automatic correction, reports and the student chatbot.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			a.in = cmd.InOrStdin()
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.exam-grader/config.yaml)")
	flags.String("server", defaultServerURL, "API server URL (env EXAM_GRADER_SERVER)")
	flags.StringP("output", "o", "table", "output format: table or json")
	flags.String("token-file", "", "session file (default is $HOME/.exam-grader/session.json)")
	_ = a.v.BindPFlag("server", flags.Lookup("server"))
	_ = a.v.BindPFlag("output", flags.Lookup("output"))
	_ = a.v.BindPFlag("token_file", flags.Lookup("token-file"))

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		a.newRegisterCmd(),
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newMeCmd(),
		a.newExamsCmd(),
		a.newCopiesCmd(),
		a.newCorrectCmd(),
		a.newReviewCmd(),
		a.newGradeCmd(),
		a.newReportCmd(),
		a.newChatCmd(),
		a.newClaimsCmd(),
	)
	return root
}

// initConfig reads the config file and EXAM_GRADER_* environment variables.
// Flags given on the command line win over both.
func (a *app) initConfig() error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		a.v.AddConfigPath(filepath.Join(home, ".exam-grader"))
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	switch a.v.GetString("output") {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q (want table or json)", a.v.GetString("output"))
	}
	return nil
}

func (a *app) jsonOutput() bool {
	return a.v.GetString("output") == "json"
}

func (a *app) printer() *observability.Printer {
	return observability.NewPrinter(a.out)
}

func (a *app) tokenStore() (*client.TokenStore, error) {
	path := a.v.GetString("token_file")
	if path == "" {
		var err error
		if path, err = client.DefaultTokenPath(); err != nil {
			return nil, err
		}
	}
	return client.NewTokenStore(path), nil
}

// client builds an API client. EXAM_GRADER_TOKEN overrides the stored session.
func (a *app) client() (*client.Client, error) {
	store, err := a.tokenStore()
	if err != nil {
		return nil, err
	}
	opts := []client.Option{client.WithTokenStore(store)}
	if token := a.v.GetString("token"); token != "" {
		opts = append(opts, client.WithToken(token))
	}
	return client.New(a.v.GetString("server"), opts...), nil
}

// render prints v as JSON when requested, otherwise calls table.
func (a *app) render(v any, table func(*observability.Printer) error) error {
	p := a.printer()
	if a.jsonOutput() {
		return p.PrintJSON(v)
	}
	return table(p)
}

func (a *app) say(format string, args ...any) {
	if a.jsonOutput() {
		return
	}
	fmt.Fprintf(a.out, format+"\n", args...) //nolint:errcheck
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID %q", kind, raw)
	}
	return id, nil
}
