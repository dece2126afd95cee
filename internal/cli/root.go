// Package cli wires the flowadmin commands.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carmatch/flowadmin/internal/api"
	"github.com/carmatch/flowadmin/internal/browser"
	"github.com/carmatch/flowadmin/internal/configstore"
	"github.com/carmatch/flowadmin/internal/flowview"
	"github.com/carmatch/flowadmin/internal/tui"
)

type App struct {
	APIURL     string
	Format     string
	PrettyJSON bool
	Timezone   string
	LogLevel   string
	ConfigPath string

	log *slog.Logger
	// open is swapped in tests.
	open func(string) error
}

func NewRootCmd() *cobra.Command {
	app := &App{open: browser.Open}

	cmd := &cobra.Command{
		Use:           "flowadmin",
		Short:         "Manage n8n flows: list, enable/disable and run now",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	defaultConfig, _ := configstore.DefaultPath()
	cmd.PersistentFlags().StringVar(&app.APIURL, "api", envOr("FLOWADMIN_API_URL", ""), "Flows API base URL (default from config, then "+configstore.DefaultAPIURL+")")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("FLOWADMIN_FORMAT", ""), "Output format (json|table)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Timezone, "tz", envOr("FLOWADMIN_TZ", ""), "Time zone for dates, e.g. America/Santiago")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("FLOWADMIN_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config-file", envOr("FLOWADMIN_CONFIG", defaultConfig), "Path to the client config JSON")
	_ = cmd.PersistentFlags().MarkHidden("config-file")

	cmd.AddCommand(newFlowsCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

// setup fills unset settings from the config file and builds the logger.
func (app *App) setup(cmd *cobra.Command) error {
	lvl, err := parseLevel(app.LogLevel)
	if err != nil {
		return err
	}
	app.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))

	if strings.TrimSpace(app.ConfigPath) != "" {
		st, err := configstore.LoadOrDefault(app.ConfigPath)
		if err != nil {
			app.log.Warn("ignoring unreadable config file", "path", app.ConfigPath, "err", err)
			st = &configstore.Store{}
		}
		if strings.TrimSpace(app.APIURL) == "" {
			app.APIURL = st.APIURL
		}
		if strings.TrimSpace(app.Timezone) == "" {
			app.Timezone = st.Timezone
		}
		if strings.TrimSpace(app.Format) == "" {
			app.Format = st.Format
		}
	}
	if strings.TrimSpace(app.APIURL) == "" {
		app.APIURL = configstore.DefaultAPIURL
	}
	if strings.TrimSpace(app.Format) == "" {
		app.Format = configstore.DefaultFormat
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level %q: %w", s, err)
	}
	return lvl, nil
}

func (app *App) logger() *slog.Logger {
	if app.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return app.log
}

func (app *App) client() *api.Client {
	return api.New(app.APIURL)
}

func (app *App) location() (*time.Location, error) {
	tz := strings.TrimSpace(app.Timezone)
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
	}
	return loc, nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	loc, err := app.location()
	if err != nil {
		return writeErr(cmd, err)
	}
	// Logs would draw over the alternate screen.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	view := flowview.New(app.client(), flowview.WithLocation(loc), flowview.WithLogger(quiet))
	return tui.Run(contextOf(cmd), tui.Config{View: view, Open: app.open})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
