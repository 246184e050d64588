// Package cli implements chesscheck, a command-line client for the arbiter API.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/park285/chess-arbiter/internal/apiclient"
	"github.com/park285/chess-arbiter/internal/msgcat"
)

// Config holds the global flags.
type Config struct {
	ServerURL string
	Actor     string
	Output    string
	Timeout   time.Duration
	// Headers are extra "Name: value" or "Name=value" request headers.
	Headers []string
	// MessagesDir overrides the embedded message templates.
	MessagesDir string
}

func DefaultConfig() *Config {
	return &Config{
		ServerURL: envOr("ARBITER_URL", "http://localhost:8080"),
		Actor:     os.Getenv("ARBITER_ACTOR"),
		Output:      "text",
		Timeout:     30 * time.Second,
		MessagesDir: os.Getenv("MESSAGES_DIR"),
	}
}

type app struct {
	cfg        *Config
	client     *apiclient.Client
	cat        *msgcat.Catalog
	clientOpts []apiclient.Option
}

// NewRootCmd builds the command tree. clientOpts are applied to every API client,
// after the flag-derived ones.
func NewRootCmd(clientOpts ...apiclient.Option) *cobra.Command {
	a := &app{cfg: DefaultConfig(), clientOpts: clientOpts}

	root := &cobra.Command{
		Use:   "chesscheck",
		Short: "Command-line client for the chess arbiter API",
		Long: `chesscheck talks to a running arbiter over HTTP.

Each subcommand maps to one API operation; "smoke" plays a scripted
fool's mate between two actors and checks every reply.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			headers, err := parseHeaders(a.cfg.Headers)
			if err != nil {
				return err
			}
			if a.cat, err = msgcat.New(a.cfg.MessagesDir); err != nil {
				return err
			}
			opts := []apiclient.Option{
				apiclient.WithTimeout(a.cfg.Timeout),
				apiclient.WithActor(a.cfg.Actor),
				apiclient.WithHeaderProvider(func() map[string]string { return headers }),
			}
			a.client = apiclient.NewClient(a.cfg.ServerURL, append(opts, a.clientOpts...)...)
			return nil
		},
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ServerURL, "server", a.cfg.ServerURL, "Arbiter base URL (env: ARBITER_URL)")
	flags.StringVar(&a.cfg.Actor, "actor", a.cfg.Actor, "Caller identity sent as X-Actor-Id (env: ARBITER_ACTOR)")
	flags.StringVarP(&a.cfg.Output, "output", "o", a.cfg.Output, "Output format: text, json")
	flags.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "Overall timeout per command")
	flags.StringArrayVarP(&a.cfg.Headers, "header", "H", nil, `Extra request header "Name: value" (repeatable)`)
	flags.StringVar(&a.cfg.MessagesDir, "messages-dir", a.cfg.MessagesDir, "Message template override dir (env: MESSAGES_DIR)")

	root.AddCommand(
		a.newCreateCmd(),
		a.newGetCmd(),
		a.newListCmd(),
		a.newJoinCmd(),
		a.newMoveCmd(),
		a.newResignCmd(),
		a.newRoleCmd(),
		a.newPGNCmd(),
		a.newBoardCmd(),
		a.newSmokeCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.Timeout)
}

func (a *app) output(cmd *cobra.Command) *Output {
	return NewOutput(a.cfg.Output, cmd.OutOrStdout())
}

func parseGameID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("game id must be a positive integer, got %q", s)
	}
	return id, nil
}

// parseHeaders accepts "Name: value" and "Name=value".
func parseHeaders(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			name, value, ok = strings.Cut(h, "=")
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if !ok || name == "" || value == "" {
			return nil, fmt.Errorf("header must be \"Name: value\", got %q", h)
		}
		out[name] = value
	}
	return out, nil
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
