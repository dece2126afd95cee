package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carmatch/flowadmin/internal/format"
)

func writeData(cmd *cobra.Command, app *App, meta map[string]any, data any) error {
	// Table output prints the data itself when it has a table shape.
	if app.Format == format.Table {
		if t, ok := data.(format.Tabular); ok {
			return format.WriteTable(cmd.OutOrStdout(), t)
		}
	}
	out := map[string]any{
		"ok":   true,
		"meta": meta,
		"data": data,
	}
	// Avoid emitting empty meta.
	if meta == nil {
		delete(out, "meta")
	}
	return writeOut(cmd, app, out)
}

func writeFailure(cmd *cobra.Command, app *App, code string, err error, hint string, details any) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	out := map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
			"details": details,
		},
		"hint": hint,
	}
	// We still return an error so Cobra exits non-zero.
	_ = writeOut(cmd, app, out)
	return err
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	f := app.Format
	if f == format.Table {
		// Envelopes have no table shape.
		f = format.JSON
	}
	return format.Write(cmd.OutOrStdout(), v, f, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
