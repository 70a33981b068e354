package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/thalib/veil/cmd/veil/internal/config"
	"github.com/thalib/veil/cmd/veil/internal/logging"
	"github.com/thalib/veil/cmd/veil/internal/redact"
	"github.com/thalib/veil/cmd/veil/internal/runid"
	"github.com/thalib/veil/cmd/veil/internal/users"
)

// runIDField names the run id on every event of a dump.
const runIDField = "run_id"

func newDumpCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Log every user row with personal data redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			id := runid.New()
			started, err := runid.Time(id)
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			count, err := dump(cmd.Context(), cfg, logger.WithField(runIDField, id))
			if err != nil {
				return fmt.Errorf("dump %s failed after %d rows: %w", id, count, err)
			}

			elapsed := time.Since(started).Round(time.Millisecond)
			fmt.Fprintf(cmd.ErrOrStderr(), "Dumped %d rows from %s (run %s, %s)\n", count, cfg.Database.Table, id, elapsed)
			return nil
		},
	}
}

// newLogger builds the redacting logger. Without a log path, lines go to the
// command's stderr.
func newLogger(cmd *cobra.Command, cfg *config.AppConfig) (*logging.Logger, error) {
	formatter, err := redact.NewFormatter(cfg.Logging.FormatterConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	return logging.NewLogger(logging.LoggerConfig{
		Name:      cfg.Logging.Name,
		Level:     logging.Level(cfg.Logging.Level),
		Format:    cfg.Logging.Format,
		Output:    cmd.ErrOrStderr(),
		FilePath:  cfg.Logging.Path,
		Formatter: formatter,
	})
}

// dump streams the user table into logger, one INFO line per row.
func dump(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (int, error) {
	repo, driver, err := openRepository(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer driver.Close()

	ctx, cancel := context.WithTimeout(ctx, queryTimeout(cfg))
	defer cancel()

	separator := logger.Formatter().Separator()
	return repo.Dump(ctx, func(row users.Row) error {
		logger.Info(row.Message(separator))
		return nil
	})
}
