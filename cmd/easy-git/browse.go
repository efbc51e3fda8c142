package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easygit/easy-git/internal/app"
)

func (c *cli) loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with GitHub in the browser and print the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := c.svc.OAuthLogin(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, token)
			c.printer.Success("Signed in to GitHub")
			return nil
		},
	}
}

type browseFlags struct {
	token  string
	output string
}

func (f *browseFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.token, "token", "", "GitHub token (default: $GITHUB_TOKEN)")
	cmd.Flags().StringVarP(&f.output, "output", "o", app.OutputTable, "output format: table or json")
}

func (c *cli) whoamiCommand() *cobra.Command {
	var flags browseFlags
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Validate the token and show its user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ValidateOutput(flags.output); err != nil {
				return err
			}
			user, err := c.svc.WhoAmI(cmd.Context(), c.token(flags.token))
			if err != nil {
				return err
			}
			return app.WriteUser(c.stdout, flags.output, user)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) reposCommand() *cobra.Command {
	var flags browseFlags
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List your most recently updated repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ValidateOutput(flags.output); err != nil {
				return err
			}
			repos, err := c.svc.Repositories(cmd.Context(), c.token(flags.token))
			if err != nil {
				return err
			}
			return app.WriteRepositories(c.stdout, flags.output, repos)
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) commitsCommand() *cobra.Command {
	var (
		flags  browseFlags
		branch string
	)
	cmd := &cobra.Command{
		Use:   "commits <owner> <repo>",
		Short: "List recent commits on a branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ValidateOutput(flags.output); err != nil {
				return err
			}
			commits, err := c.svc.Commits(cmd.Context(), c.token(flags.token), args[0], args[1], branch)
			if err != nil {
				return err
			}
			return app.WriteCommits(c.stdout, flags.output, commits)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&branch, "branch", "", "branch to list (default: the repository's default branch)")
	return cmd
}

func (c *cli) showCommand() *cobra.Command {
	var flags browseFlags
	cmd := &cobra.Command{
		Use:   "show <owner> <repo> <sha>",
		Short: "Show a commit and the files it changed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.ValidateOutput(flags.output); err != nil {
				return err
			}
			detail, err := c.svc.Commit(cmd.Context(), c.token(flags.token), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return app.WriteCommit(c.stdout, flags.output, detail)
		},
	}
	flags.register(cmd)
	return cmd
}
