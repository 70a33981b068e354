package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thalib/veil/cmd/veil/internal/config"
	"github.com/thalib/veil/cmd/veil/internal/password"
)

func newHasher(cfg *config.AppConfig) (*password.Hasher, error) {
	hasher, err := password.NewHasher(cfg.Password.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to create hasher: %w", err)
	}
	return hasher, nil
}

func newHashCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print the salted digest of a password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			hasher, err := newHasher(cfg)
			if err != nil {
				return err
			}

			plaintext, err := readSecret(cmd, "Password: ")
			if err != nil {
				return err
			}

			digest, err := hasher.Hash(plaintext)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), digest.String())
			return nil
		},
	}
}

func newVerifyCommand(opts *options) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "verify [DIGEST]",
		Short: "Check a password read from stdin against a digest",
		Long: `Check a password read from stdin against a digest. Exits 0 on match and 1 otherwise.

With --email the digest is read from the user's row instead of the argument, and a
notice is printed when the stored digest was made at a lower cost than configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case email == "" && len(args) == 0:
				return fmt.Errorf("verify needs a DIGEST argument or --email")
			case email != "" && len(args) > 0:
				return fmt.Errorf("verify takes either a DIGEST argument or --email, not both")
			}

			candidate, err := readSecret(cmd, "Password: ")
			if err != nil {
				return err
			}

			if email == "" {
				return reportMatch(cmd, password.Verify(password.Digest(args[0]), candidate))
			}
			return verifyStored(cmd, opts, email, candidate)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "verify against the stored digest of this user")
	return cmd
}

// verifyStored checks candidate against the digest stored for email.
func verifyStored(cmd *cobra.Command, opts *options, email, candidate string) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	hasher, err := newHasher(cfg)
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
	digest, err := repo.PasswordDigest(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	matched := hasher.Verify(digest, candidate)
	if matched && hasher.NeedsRehash(digest) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Stored digest is below cost %d; run passwd to rehash\n", hasher.Cost())
	}
	return reportMatch(cmd, matched)
}

func reportMatch(cmd *cobra.Command, matched bool) error {
	if !matched {
		fmt.Fprintln(cmd.OutOrStdout(), "mismatch")
		return ErrMismatch
	}
	fmt.Fprintln(cmd.OutOrStdout(), "match")
	return nil
}
