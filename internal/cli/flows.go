package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/carmatch/flowadmin/internal/api"
	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/carmatch/flowadmin/internal/flowview"
	"github.com/carmatch/flowadmin/internal/format"
)

func newFlowsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flows",
		Short: "List and operate flows",
	}
	cmd.AddCommand(newFlowsListCmd(app))
	cmd.AddCommand(newFlowsToggleCmd(app))
	cmd.AddCommand(newFlowsRunCmd(app))
	cmd.AddCommand(newFlowsStatusCmd(app))
	cmd.AddCommand(newFlowsOpenCmd(app))
	cmd.AddCommand(newFlowsRenderCmd(app))
	return cmd
}

// flowTable is the table shape of a flow list.
type flowTable struct {
	flows []flows.Flow
	loc   *time.Location
}

func (t flowTable) Headers() []string {
	return []string{"ID", "Flujo", "Hora", "Frecuencia", "Última ejecución", "Estado", "Webhook"}
}

func (t flowTable) Rows() [][]string {
	out := make([][]string, 0, len(t.flows))
	for _, f := range t.flows {
		hook := "no"
		if f.HasWebhook {
			hook = "sí"
		}
		out = append(out, []string{
			f.ID.String(),
			f.DisplayName(),
			f.DisplaySchedule(),
			f.DisplayFrequency(),
			f.DisplayLastRun(t.loc),
			flows.StatusLabel(f.Enabled),
			hook,
		})
	}
	return out
}

// requestFailure maps a client error to an error envelope.
func requestFailure(cmd *cobra.Command, app *App, err error) error {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		return writeFailure(cmd, app, "api_error", err, "", map[string]any{"status": apiErr.Status})
	case errors.Is(err, api.ErrMalformedResponse):
		return writeFailure(cmd, app, "malformed_response", err, "Is --api pointing at a flowadmin server?", nil)
	default:
		return writeFailure(cmd, app, "request_failed", err, "Check that the server is running (flowadmin serve) and --api is correct", nil)
	}
}

func timezoneFailure(cmd *cobra.Command, app *App, err error) error {
	return writeFailure(cmd, app, "invalid_timezone", err, "Use an IANA name such as America/Santiago", nil)
}

func newFlowsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := app.location()
			if err != nil {
				return timezoneFailure(cmd, app, err)
			}
			list, err := app.client().ListFlows(cmd.Context())
			if err != nil {
				return requestFailure(cmd, app, err)
			}
			if app.Format == format.Table {
				return writeData(cmd, app, nil, flowTable{flows: list, loc: loc})
			}
			if list == nil {
				list = []flows.Flow{}
			}
			return writeData(cmd, app, map[string]any{"count": len(list)}, map[string]any{"flows": list})
		},
	}
}

func newFlowsToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <flow-id>",
		Short: "Enable a disabled flow or disable an enabled one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := app.location()
			if err != nil {
				return timezoneFailure(cmd, app, err)
			}
			f, err := app.client().ToggleFlow(cmd.Context(), flows.ID(strings.TrimSpace(args[0])))
			if err != nil {
				return requestFailure(cmd, app, err)
			}
			if app.Format == format.Table {
				return writeData(cmd, app, nil, flowTable{flows: []flows.Flow{f}, loc: loc})
			}
			return writeData(cmd, app, map[string]any{"status": flows.StatusLabel(f.Enabled)}, map[string]any{"flow": f})
		},
	}
}

func newFlowsRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run <flow-id>",
		Short: "Trigger a flow's webhook now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.client().RunNow(cmd.Context(), flows.ID(strings.TrimSpace(args[0])))
			if err != nil {
				return requestFailure(cmd, app, err)
			}
			if !res.OK {
				msg := strings.TrimSpace(res.Error)
				if msg == "" {
					msg = fmt.Sprintf("run failed (status=%d)", res.Status)
				}
				return writeFailure(cmd, app, "run_failed", errors.New(msg), "", res)
			}
			return writeData(cmd, app, nil, map[string]any{"run": res})
		},
	}
}

func newFlowsStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status <flow-id>",
		Short: "Show the most recent execution of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.client().LastExecution(cmd.Context(), flows.ID(strings.TrimSpace(args[0])))
			if err != nil {
				return requestFailure(cmd, app, err)
			}
			return writeData(cmd, app, nil, map[string]any{"execution": st})
		},
	}
}

func newFlowsOpenCmd(app *App) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "open <flow-id>",
		Short: "Open a flow in the n8n editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := flows.ID(strings.TrimSpace(args[0]))
			list, err := app.client().ListFlows(cmd.Context())
			if err != nil {
				return requestFailure(cmd, app, err)
			}
			var target *flows.Flow
			for i := range list {
				if list[i].ID == id {
					target = &list[i]
					break
				}
			}
			if target == nil {
				return writeFailure(cmd, app, "not_found", fmt.Errorf("flow %q is not configured", id), "Run `flowadmin flows list` to see configured flows", nil)
			}
			u := target.SafeEditorURL()
			if u == "" {
				return writeFailure(cmd, app, "no_editor_url", fmt.Errorf("flow %q has no editor link", id), "Set n8n.base_url on the server", nil)
			}
			if !printOnly {
				if err := app.open(u); err != nil {
					return writeFailure(cmd, app, "open_failed", err, "Use --print and open the URL manually", map[string]any{"url": u})
				}
			}
			return writeData(cmd, app, nil, map[string]any{"id": id, "url": u, "opened": !printOnly})
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the URL instead of opening a browser")
	return cmd
}

// newFlowsRenderCmd prints the admin table as HTML, for embedding the list
// into a static page.
func newFlowsRenderCmd(app *App) *cobra.Command {
	var page bool
	var adminPath string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the flow table as HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := app.location()
			if err != nil {
				return writeErr(cmd, err)
			}
			view := flowview.New(app.client(), flowview.WithLocation(loc), flowview.WithLogger(app.logger()))
			// A failed load still renders its placeholder row.
			if err := view.Load(cmd.Context()); err != nil {
				app.logger().Warn("flow list failed to load", "err", err)
			}
			snap := view.Snapshot()
			r := flowview.Renderer{AdminPath: adminPath}
			if page {
				return r.RenderPage(cmd.OutOrStdout(), flowview.Page{Snapshot: snap})
			}
			return r.RenderRows(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().BoolVar(&page, "page", false, "Render a full HTML page instead of table rows")
	cmd.Flags().StringVar(&adminPath, "admin-path", flowview.DefaultAdminPath, "Path the row actions post to")
	return cmd
}
