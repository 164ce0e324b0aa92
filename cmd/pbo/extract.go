package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/pbo"
)

func (a *app) newUnpackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unpack <archive> <dir>",
		Short: "Extract all entries into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			stats, err := ar.Extract(cmd.Context(), args[1],
				pbo.ExtractWithOverwrite(a.cfg.Overwrite),
				pbo.ExtractWithPreserveTimes(a.cfg.PreserveTimes),
				pbo.ExtractWithWorkers(a.cfg.Workers),
				pbo.ExtractWithProgress(func(ev pbo.ProgressEvent) {
					a.logger.Debug("extracted", "path", ev.Name, "done", ev.EntriesDone, "total", ev.EntriesTotal)
				}),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d files (%d bytes) to %s",
				successStyle.Render("extracted"), stats.Files, stats.Bytes, args[1])
			if stats.Skipped > 0 {
				fmt.Fprint(cmd.OutOrStdout(), mutedStyle.Render(fmt.Sprintf(", %d skipped", stats.Skipped)))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Bool("overwrite", false, "overwrite existing files")
	flags.Bool("preserve-times", false, "apply entry timestamps to extracted files")
	flags.Int("workers", 0, "parallel workers (0 = GOMAXPROCS, negative = serial)")
	a.bind("overwrite", flags.Lookup("overwrite"))
	a.bind("preserve_times", flags.Lookup("preserve-times"))
	a.bind("workers", flags.Lookup("workers"))
	return cmd
}

func (a *app) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <archive> <out.tar>",
		Short: "Convert an archive to tar",
		Long: `Convert an archive to a tar stream. Output names ending in .zst or
.tzst are zstd-compressed, as is any output when --zstd-level is set.
Use "-" to write to stdout.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			var opts []pbo.ExportOption
			level := a.cfg.ZstdLevel
			if level > 0 || strings.HasSuffix(args[1], ".zst") || strings.HasSuffix(args[1], ".tzst") {
				opts = append(opts, pbo.ExportWithZstd(level))
			}

			if args[1] == "-" {
				return ar.ExportTar(cmd.OutOrStdout(), opts...)
			}
			return exportFile(ar, args[1], opts)
		},
	}
	cmd.Flags().Int("zstd-level", 0, "zstd compression level (1-22)")
	a.bind("zstd_level", cmd.Flags().Lookup("zstd-level"))
	return cmd
}

// exportFile writes the tar stream next to target and renames it into
// place once complete.
func exportFile(ar *pbo.Archive, target string, opts []pbo.ExportOption) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".pbo-export-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := ar.ExportTar(tmp, opts...); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
