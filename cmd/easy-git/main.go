package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/easygit/easy-git/internal/app"
	"github.com/easygit/easy-git/internal/oauth"
	"github.com/easygit/easy-git/internal/ui"
)

// Version is set at build time.
var Version = "dev"

const tokenEnv = "GITHUB_TOKEN"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, printer: ui.New(stderr), stderr: stderr}
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		c.printer.Fail(err)
		return 1
	}
	return 0
}

type cli struct {
	configPath   string
	logLevel     string
	logFormat    string
	dryRun       bool
	callbackPort int

	stdout  io.Writer
	stderr  io.Writer
	printer *ui.Printer

	credentials oauth.Source
	svc         *app.Service
}

func (c *cli) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "easy-git",
		Short:         "Revert GitHub commits without keeping a local clone",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to the config file (default ~/.config/easy-git/config.yaml)")
	flags.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	flags.BoolVar(&c.dryRun, "dry-run", false, "log git commands instead of running them")
	flags.IntVar(&c.callbackPort, "callback-port", 0, "loopback port for the OAuth callback")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return c.setup(cmd)
	}

	cmd.AddCommand(c.revertCommand())
	cmd.AddCommand(c.revertRemoteCommand())
	cmd.AddCommand(c.loginCommand())
	cmd.AddCommand(c.whoamiCommand())
	cmd.AddCommand(c.reposCommand())
	cmd.AddCommand(c.commitsCommand())
	cmd.AddCommand(c.showCommand())

	return cmd
}

// setup resolves configuration with flags taking precedence over the
// environment and the config file, then builds the service.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = c.dryRun
	}
	if flags.Changed("callback-port") {
		cfg.CallbackPort = c.callbackPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := app.NewLoggerTo(c.stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	dotenv, err := oauth.NewDotenvSource(".env")
	if err != nil {
		logger.Warn("ignoring unreadable .env file", "error", err)
	}
	c.credentials = oauth.ChainSource{oauth.EnvSource{}, dotenv}

	c.svc = app.NewServiceWithDeps(cfg, logger, app.Deps{
		Credentials: c.credentials,
		Prompt: func(url string) {
			c.printer.Info("Opening your browser to authorize easy-git. If it does not open, visit:\n    %s", url)
		},
	})
	return nil
}

// token returns the explicit flag value, or GITHUB_TOKEN from the
// environment or .env.
func (c *cli) token(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if c.credentials != nil {
		if v, ok := c.credentials.Lookup(tokenEnv); ok {
			return v
		}
	}
	return ""
}
