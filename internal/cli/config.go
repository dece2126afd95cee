package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carmatch/flowadmin/internal/configstore"
	"github.com/carmatch/flowadmin/internal/format"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the client settings",
	}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigSetCmd(app, "set-api", "<url>", "Set the flows API base URL", setAPIURL))
	cmd.AddCommand(newConfigSetCmd(app, "set-tz", "<zone>", "Set the time zone used for dates", setTimezone))
	cmd.AddCommand(newConfigSetCmd(app, "set-format", "<json|table>", "Set the default output format", setFormat))
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective client settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeData(cmd, app, map[string]any{"path": app.ConfigPath}, map[string]any{
				"apiUrl":   app.APIURL,
				"timezone": app.Timezone,
				"format":   app.Format,
			})
		},
	}
}

func newConfigSetCmd(app *App, use, arg, short string, apply func(*configstore.Store, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " " + arg,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(app.ConfigPath) == "" {
				return writeFailure(cmd, app, "no_config_path", errors.New("cannot determine config path"), "Set FLOWADMIN_CONFIG", nil)
			}
			st, err := configstore.LoadOrDefault(app.ConfigPath)
			if err != nil {
				return writeFailure(cmd, app, "config_read_failed", err, "", map[string]any{"path": app.ConfigPath})
			}
			if err := apply(st, strings.TrimSpace(args[0])); err != nil {
				return writeFailure(cmd, app, "invalid_value", err, "", nil)
			}
			if err := configstore.SaveAtomic(app.ConfigPath, st); err != nil {
				return writeFailure(cmd, app, "config_write_failed", err, "", map[string]any{"path": app.ConfigPath})
			}
			return writeData(cmd, app, map[string]any{"path": app.ConfigPath}, st)
		},
	}
}

func setAPIURL(st *configstore.Store, v string) error {
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url %q (expected http(s)://host[:port])", v)
	}
	st.APIURL = strings.TrimRight(v, "/")
	return nil
}

func setTimezone(st *configstore.Store, v string) error {
	if _, err := time.LoadLocation(v); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", v, err)
	}
	st.Timezone = v
	return nil
}

func setFormat(st *configstore.Store, v string) error {
	v = strings.ToLower(v)
	if v != format.JSON && v != format.Table {
		return fmt.Errorf("invalid format %q (expected json or table)", v)
	}
	st.Format = v
	return nil
}
