package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carmatch/flowadmin/internal/buildinfo"
	"github.com/carmatch/flowadmin/internal/format"
)

func newVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Current()
			if app.Format == format.Table {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return err
			}
			return writeData(cmd, app, nil, info)
		},
	}
}
