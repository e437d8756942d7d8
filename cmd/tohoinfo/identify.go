package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"tohoinfo/internal/core"
	"tohoinfo/pkg/fuzzy"
)

func newIdentifyCmd() *cobra.Command {
	var meta core.SongMetadata

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Identify a single track without Spotify",
		Long: `Runs one resolution cycle for the given track metadata against TouhouDB and prints
the scored candidates and the resolved original.`,
		Example: `  tohoinfo identify --title "U.N.オーエンは彼女なのか？" --artist "Cool&Create"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			identifier, err := buildIdentifier(config, logger, core.NopMetrics{})
			if err != nil {
				return err
			}

			result, err := identifier.Identify(cmd.Context(), "cli", meta)
			if err != nil {
				return err
			}

			renderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVar(&meta.Title, "title", "", "track title")
	cmd.Flags().StringVar(&meta.ArtistName, "artist", "", "primary artist")
	cmd.Flags().StringVar(&meta.AlbumTitle, "album", "", "album title")
	cmd.Flags().StringSliceVar(&meta.CreditSlots, "credit", nil, "additional artist credits")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize TITLE...",
		Short: "Print the search query derived from each title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []fuzzy.Option
			if len(config.Matching.StripTags) > 0 {
				opts = append(opts, fuzzy.WithStripTags(config.Matching.StripTags...))
			}
			normalizer := fuzzy.NewNormalizer(opts...)

			out := cmd.OutOrStdout()
			for _, title := range args {
				fmt.Fprintln(out, normalizer.NormalizeTitle(title))
			}
			return nil
		},
	}
}

func renderResult(out io.Writer, result *core.Result) {
	fmt.Fprintf(out, "Query:  %s\n", result.Query)
	fmt.Fprintf(out, "Status: %s\n", result.Status)
	if result.Status != core.StatusMatched {
		return
	}
	fmt.Fprintf(out, "Strictly original credit: %t\n\n", result.StrictlyOriginal)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "ID", "Name", "Type", "Artists", "Albums", "Strict", "Score"})
	for _, candidate := range result.Candidates {
		selected := ""
		if result.Match != nil && candidate.Song.ID == result.Match.ID {
			selected = "*"
		}
		t.AppendRow(table.Row{
			selected,
			candidate.Song.ID,
			candidate.Song.Name,
			string(candidate.Song.SongType),
			candidate.ArtistMatches,
			candidate.AlbumMatches,
			candidate.StrictBonus,
			candidate.Score,
		})
	}
	t.Render()

	fmt.Fprintln(out)
	fmt.Fprintln(out, result.MainText)
	if result.SubText != "" {
		fmt.Fprintln(out, result.SubText)
	}
	if len(result.FacetLabels) > 0 {
		fmt.Fprintf(out, "Facets: %s\n", strings.Join(result.FacetLabels, ", "))
	}
	if result.OpenTarget != "" {
		fmt.Fprintf(out, "Open:   %s\n", result.OpenTarget)
	}
	if result.BrowseURL != "" {
		fmt.Fprintf(out, "Browse: %s\n", result.BrowseURL)
	}
	if result.Identity != nil && result.Identity.Display != nil {
		fmt.Fprintf(out, "Original ID: %d\n", result.Identity.Display.ID)
	}
}
