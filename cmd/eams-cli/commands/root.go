package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"eamsassist-backend/internal/components/chrono"
	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/config"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/auth"
	"eamsassist-backend/internal/eams/scraper"
	"eamsassist-backend/internal/eams/transport"
	"eamsassist-backend/internal/sessionfile"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	statePath  string
	dumpDir    string
	verbose    bool
)

// deps is built once per invocation before any subcommand runs.
var deps struct {
	cfg     config.Config
	clock   chrono.API
	flow    *auth.Flow
	scraper *scraper.Scraper
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath, "The json5 config file.")
	flags.StringVar(&statePath, "state", sessionfile.DefaultPath, "Where the login session is kept.")
	flags.StringVar(&dumpDir, "dump-http", "", "Write every raw HTTP exchange to this directory.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

var rootCmd = &cobra.Command{
	Use:           "eams-cli",
	Short:         "eams-cli logs into EAMS and exports your course schedule.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose, false)

		if err := config.LoadEnv(); err != nil {
			return err
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dumpDir != "" {
			cfg.HTTP.DumpDir = dumpDir
		}

		clock, err := chrono.NewStandardImpl(cfg.Calendar.TimeZone)
		if err != nil {
			return fmt.Errorf("load time zone: %w", err)
		}
		opts, err := cfg.TransportOptions()
		if err != nil {
			return fmt.Errorf("open dump dir: %w", err)
		}

		tel := telemetry.SlogAPI{}
		client := transport.NewClient(opts, tel)
		deps.cfg = cfg
		deps.clock = clock
		deps.flow = auth.NewFlow(client, cfg.Endpoints, tel)
		deps.scraper = scraper.NewScraper(client, cfg.Endpoints, clock, tel)
		return nil
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, eams.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "session expired, run `eams-cli login` again")
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSession() (eams.Session, error) {
	return sessionfile.Load(statePath)
}

// forgetOnExpiry removes the saved session when err says it has expired.
func forgetOnExpiry(err error) error {
	if errors.Is(err, eams.ErrSessionExpired) {
		if removeErr := sessionfile.Remove(statePath); removeErr != nil {
			return errors.Join(err, removeErr)
		}
	}
	return err
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
