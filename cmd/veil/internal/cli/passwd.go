package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newPasswdCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd EMAIL",
		Short: "Hash a password read from stdin and store it for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]

			cfg, err := opts.load()
			if err != nil {
				return err
			}
			hasher, err := newHasher(cfg)
			if err != nil {
				return err
			}

			plaintext, err := readSecret(cmd, "New password: ")
			if err != nil {
				return err
			}

			// Hash before connecting so a rejected password never opens a connection
			digest, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}

			repo, driver, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer driver.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), queryTimeout(cfg))
			defer cancel()
			if err := repo.SetPassword(ctx, email, digest); err != nil {
				return fmt.Errorf("failed to set password: %w", err)
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Password updated")
			return nil
		},
	}
}
