package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/carmatch/flowadmin/internal/backend"
	"github.com/carmatch/flowadmin/internal/config"
	"github.com/carmatch/flowadmin/internal/mock"
	"github.com/carmatch/flowadmin/internal/n8n"
	"github.com/carmatch/flowadmin/internal/server"
	"github.com/carmatch/flowadmin/internal/state"
)

type serveOptions struct {
	configPath string
	addr       string
	mockState  string
	title      string
}

func newServeCmd(app *App) *cobra.Command {
	var o serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flows API and the admin page",
		Long: strings.TrimSpace(`
Serves the flows JSON API under /api/n8n/flows/ and the admin page under
/admin/flows/. Flows come from n8n (N8N_API_URL, N8N_API_KEY, N8N_FLOW_IDS)
or, with --mock, from a local state file seeded with demo workflows.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, o)
			if err != nil {
				return writeErr(cmd, err)
			}
			svc, err := newService(cfg, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			srv := server.New(svc, server.Options{
				Title:    o.title,
				Logger:   app.logger(),
				Location: cfg.Location(),
			})

			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app.logger().Info("serving flows", "addr", cfg.Addr, "flows", len(svc.FlowIDs), "mock", cfg.Mock)
			return srv.Run(ctx, cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&o.configPath, "config", envOr("FLOWADMIN_SERVER_CONFIG", ""), "Server config YAML")
	cmd.Flags().StringVar(&o.addr, "addr", "", "Listen address (default "+config.DefaultAddr+")")
	cmd.Flags().StringVar(&o.mockState, "mock", "", "Serve demo flows from this state file instead of n8n")
	cmd.Flags().StringVar(&o.title, "title", "", "Admin page title")
	return cmd
}

func loadServeConfig(cmd *cobra.Command, o serveOptions) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = strings.TrimSpace(o.addr)
	}
	if p := strings.TrimSpace(o.mockState); p != "" {
		cfg.Mock = true
		cfg.MockState = p
	}
	if cfg.Mock && strings.TrimSpace(cfg.MockState) == "" {
		p, err := state.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
		cfg.MockState = p
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newService picks the workflow source. The mock supplies its own flow list
// and webhooks unless the config names them.
func newService(cfg config.Config, app *App) (*backend.Service, error) {
	svc := &backend.Service{
		FlowIDs:       cfg.N8N.FlowIDs,
		Webhooks:      cfg.N8N.Webhooks,
		EditorBaseURL: cfg.N8N.BaseURL,
		Logger:        app.logger(),
	}
	if !cfg.Mock {
		svc.Source = n8n.Client{
			APIURL:    cfg.N8N.APIURL,
			APIKey:    cfg.N8N.APIKey,
			ProjectID: cfg.N8N.ProjectID,
		}
		return svc, nil
	}

	store := &mock.Store{Path: cfg.MockState}
	if _, err := store.Ensure(); err != nil {
		return nil, err
	}
	if len(svc.FlowIDs) == 0 {
		ids, err := store.FlowIDs()
		if err != nil {
			return nil, err
		}
		svc.FlowIDs = ids
	}
	if len(svc.Webhooks) == 0 {
		hooks, err := store.Webhooks()
		if err != nil {
			return nil, err
		}
		svc.Webhooks = hooks
	}
	svc.Source = store
	return svc, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
