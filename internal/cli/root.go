package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"listd/internal/client"
	"listd/internal/format"

	"github.com/spf13/cobra"
)

type App struct {
	Server     string
	ConfigPath string
	PrettyJSON bool
	Format     string
	Timeout    time.Duration
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "listd",
		Short:        "Virtualized, reorderable list server and client",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the server with defaults (1M items on 127.0.0.1:8080)
  listd serve

  # Read a page, move item 5 to the top, read again
  listd page --limit 5
  listd save --item 5 --old-index 4 --new-index 0
  listd page --limit 5 --format table

  # Browse interactively
  listd browse
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Server, "server", envOr("LISTD_SERVER", client.DefaultBaseURL), "Server base URL for client commands")
	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Config file (default: $LISTD_CONFIG or ~/.listd/config.yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("LISTD_FORMAT", "json"), "Output format ("+strings.Join(format.Formats, "|")+")")
	cmd.PersistentFlags().DurationVar(&app.Timeout, "timeout", 30*time.Second, "Client request timeout")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newPageCmd(app))
	cmd.AddCommand(newIDsCmd(app))
	cmd.AddCommand(newSaveCmd(app))
	cmd.AddCommand(newStateCmd(app))
	cmd.AddCommand(newOrderCmd(app))
	cmd.AddCommand(newJournalCmd(app))
	cmd.AddCommand(newBrowseCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func newClient(app *App) (*client.Client, error) {
	return client.New(app.Server, &http.Client{Timeout: app.Timeout})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
