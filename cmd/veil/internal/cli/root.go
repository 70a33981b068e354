// Package cli implements the veil command line: dumping user rows through the
// redacting logger and hashing, verifying and storing credentials.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"github.com/thalib/veil/cmd/veil/internal/config"
	"github.com/thalib/veil/cmd/veil/internal/constants"
	"github.com/thalib/veil/cmd/veil/internal/database"
	"github.com/thalib/veil/cmd/veil/internal/users"
)

// ErrMismatch is returned by verify when the candidate does not match.
// It maps to exit code 1 without an error message.
var ErrMismatch = errors.New("password does not match")

const defaultMySQLPort = "3306"

type options struct {
	configPath string
}

// NewRootCommand builds the veil command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "veil",
		Short:         "Redact personal data from logs and hash credentials",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to configuration file (default: "+config.Defaults.ConfigPath+")")

	cmd.AddCommand(
		newDumpCommand(opts),
		newHashCommand(opts),
		newVerifyCommand(opts),
		newPasswdCommand(opts),
	)
	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrMismatch) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (o *options) load() (*config.AppConfig, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// openRepository connects to the configured database. The caller closes the
// returned driver.
func openRepository(ctx context.Context, cfg *config.AppConfig) (*users.Repository, database.Driver, error) {
	driver, err := database.NewDriver(database.Config{
		ConnectionString: buildConnectionString(cfg.Database),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, constants.ConnectTimeout)
	defer cancel()
	if err := driver.Connect(connectCtx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Database.Connection, err)
	}

	repo, err := users.NewRepository(driver, cfg.Database.Table)
	if err != nil {
		driver.Close()
		return nil, nil, err
	}
	return repo, driver, nil
}

// buildConnectionString creates a database connection string from DatabaseConfig
func buildConnectionString(db config.DatabaseConfig) string {
	switch db.Connection {
	case "sqlite":
		return fmt.Sprintf("sqlite://%s", db.Name)
	case "postgres":
		u := url.URL{Scheme: "postgres", Host: db.Host, Path: "/" + db.Name}
		if db.Password != "" {
			u.User = url.UserPassword(db.User, db.Password)
		} else if db.User != "" {
			u.User = url.User(db.User)
		}
		return u.String()
	default:
		mc := mysql.NewConfig()
		mc.User = db.User
		mc.Passwd = db.Password
		mc.Net = "tcp"
		mc.Addr = db.Host
		if _, _, err := net.SplitHostPort(db.Host); err != nil {
			mc.Addr = net.JoinHostPort(db.Host, defaultMySQLPort)
		}
		mc.DBName = db.Name
		return "mysql://" + mc.FormatDSN()
	}
}

func queryTimeout(cfg *config.AppConfig) time.Duration {
	return time.Duration(cfg.Database.QueryTimeout) * time.Second
}
