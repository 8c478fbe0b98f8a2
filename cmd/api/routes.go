package main

import (
	"fmt"
	"io"
	"strings"

	"nvd-api/internal/models"
	"nvd-api/internal/server"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the route catalog served at /help",
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRoutes(cmd.OutOrStdout(), server.Catalog())
	},
}

func printRoutes(w io.Writer, infos []models.RouteInfo) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting:   tw.CellFormatting{AutoWrap: tw.WrapNormal},
				Alignment:    tw.CellAlignment{Global: tw.AlignLeft},
				ColMaxWidths: tw.CellWidth{Global: 60},
			},
		}),
	)

	table.Header([]string{"Route", "Methods", "Description"})

	invalid := 0
	for _, info := range infos {
		desc := info.Description
		if desc == "" || len(info.Methods) == 0 {
			invalid++
			desc = color.RedString(server.InvalidRoute(info.Name))
		}
		if err := table.Append([]string{info.Path, strings.Join(info.Methods, ","), desc}); err != nil {
			return err
		}
	}

	if err := table.Render(); err != nil {
		return err
	}

	if invalid > 0 {
		fmt.Fprintf(w, "%s\n", color.YellowString("%d invalid route definition(s)", invalid))
	}
	return nil
}
