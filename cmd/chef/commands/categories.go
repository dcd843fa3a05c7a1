package commands

import (
	"context"
	"time"

	"storyweaver-chef/lib/serviceutil"
	"storyweaver-chef/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(categoriesCmd)
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Lists the categories the listing API exposes as crawl keys.",
	Run: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		cfg := readConfig()
		ctx := serviceutil.SignalContext()

		client, cleanup := createClient(ctx, cfg)
		defer cleanup()

		reqCtx, cancel := context.WithTimeout(ctx, time.Second*30)
		defer cancel()
		categories, err := client.Categories(reqCtx)
		if err != nil {
			serviceutil.Fatal("failed to list categories", err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"category"})
		for _, c := range categories {
			t.AppendRow(table.Row{c})
		}
		t.Render()
	},
}
