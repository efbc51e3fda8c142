package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) revertCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "revert <sha>",
		Short: "Revert a commit inside an existing working copy",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&dir, "dir", "", "working copy to revert in (default: current directory)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		out, err := c.svc.RevertInPlace(cmd.Context(), args[0], dir)
		if err != nil {
			return err
		}
		if out != "" {
			fmt.Fprintln(c.stdout, out)
		}
		c.printer.Success("Reverted %s", args[0])
		return nil
	}

	return cmd
}

func (c *cli) revertRemoteCommand() *cobra.Command {
	var (
		branch string
		token  string
	)

	cmd := &cobra.Command{
		Use:   "revert-remote <owner> <repo> <sha>",
		Short: "Revert a commit on a GitHub branch through a temporary clone and push it",
		Args:  cobra.ExactArgs(3),
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch to revert on and push to")
	cmd.Flags().StringVar(&token, "token", "", "GitHub token used for clone and push (default: $GITHUB_TOKEN)")
	_ = cmd.MarkFlagRequired("branch")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		owner, repo, sha := args[0], args[1], args[2]
		c.printer.Info("Reverting %s on %s/%s@%s", sha, owner, repo, branch)

		summary, err := c.svc.RevertViaTempClone(cmd.Context(), owner, repo, sha, branch, c.token(token))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, summary)
		c.printer.Success("Pushed revert to %s", branch)
		return nil
	}

	return cmd
}
