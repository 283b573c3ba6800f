package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/austinkregel/local-media/termplay/internal/catalog"
	"github.com/austinkregel/local-media/termplay/internal/metadata"
)

func scanCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "List the tracks termplay would play",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.manager.Get()
			dir := cfg.Library.Dir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				dir = "."
			}

			cat, err := catalog.Build(dir, catalog.ParseExtensions(cfg.Library.Extensions))
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), cat.Tracks())
			}
			return printCatalog(cmd.OutOrStdout(), cat)
		},
	}
}

func printCatalog(w io.Writer, cat *catalog.Catalog) error {
	data := pterm.TableData{{"#", "NAME", "PATH"}}
	for _, t := range cat.Tracks() {
		data = append(data, []string{strconv.Itoa(t.Index), t.Name, t.Path})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d tracks in %s\n", cat.Len(), cat.Dir())
	return err
}

// tagsOutput is the printable form of extracted metadata
type tagsOutput struct {
	Path         string `json:"path"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	ArtworkBytes int    `json:"artworkBytes"`
	ArtworkMIME  string `json:"artworkMime,omitempty"`
	ArtworkPath  string `json:"artworkPath,omitempty"`
}

func tagsCommand(c *cli) *cobra.Command {
	var exportDir string

	cmd := &cobra.Command{
		Use:   "tags <file>...",
		Short: "Show the tags termplay reads from audio files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("export-dir") {
				exportDir = c.manager.Get().Artwork.ExportDir
			}
			ex := metadata.NewExtractor(nil, exportDir)

			cat := catalog.New(args)
			out := make([]tagsOutput, 0, cat.Len())
			for _, t := range cat.Tracks() {
				m := ex.Extract(t)
				out = append(out, tagsOutput{
					Path:         t.Path,
					Title:        m.Title,
					Artist:       m.Artist,
					Album:        m.Album,
					ArtworkBytes: len(m.Artwork),
					ArtworkMIME:  m.ArtworkMIME,
					ArtworkPath:  m.ArtworkPath,
				})
			}

			if c.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return printTags(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&exportDir, "export-dir", "", "write embedded covers to this directory")

	return cmd
}

func printTags(w io.Writer, tags []tagsOutput) error {
	data := pterm.TableData{{"FILE", "TITLE", "ARTIST", "ALBUM", "ARTWORK"}}
	for _, t := range tags {
		art := "-"
		if t.ArtworkBytes > 0 {
			art = fmt.Sprintf("%s %d bytes", t.ArtworkMIME, t.ArtworkBytes)
			if t.ArtworkPath != "" {
				art += " -> " + t.ArtworkPath
			}
		}
		data = append(data, []string{
			t.Path,
			metadata.Or(t.Title, "-"),
			metadata.Or(t.Artist, metadata.Unknown),
			metadata.Or(t.Album, metadata.Unknown),
			art,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
