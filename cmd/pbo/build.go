package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/pbo"
)

func (a *app) newPackCmd() *cobra.Command {
	var (
		products []string
		prefix   string
	)
	cmd := &cobra.Command{
		Use:   "pack <dir> <archive>",
		Short: "Build an archive from a directory",
		Long: `Build an archive from every regular file below a directory. Entry
names use the configured separator. Existing archives are replaced.`,
		Example: `  pbo pack ./addon addon.pbo --product prefix='x\addon' --store-timestamps`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar := pbo.New(a.archiveOptions()...)
			for _, kv := range products {
				key, value, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("invalid --product %q: want key=value", kv)
				}
				if err := ar.AddProductPair(key, value); err != nil {
					return err
				}
			}

			n, err := ar.AddDir(cmd.Context(), args[0],
				pbo.AddWithSeparator(a.cfg.Separator),
				pbo.AddWithPrefix(prefix),
				pbo.AddWithProgress(func(ev pbo.ProgressEvent) {
					a.logger.Debug("added", "name", ev.Name, "entries", ev.EntriesDone)
				}),
			)
			if err != nil {
				if errors.Is(err, pbo.ErrTooManyFiles) {
					return fmt.Errorf("pack %s: %w (limit %d)", args[0], err, pbo.DefaultMaxFiles)
				}
				return fmt.Errorf("pack %s: %w", args[0], err)
			}
			a.logger.Debug("collected files", "count", n)

			stats, err := ar.SaveAs(args[1])
			if err != nil {
				return err
			}
			return a.reportSave(cmd, args[1], stats)
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVar(&products, "product", nil, "product entry as key=value (repeatable)")
	flags.StringVar(&prefix, "name-prefix", "", "string prepended to every entry name")
	flags.Bool("store-timestamps", false, "store file modification times")
	flags.String("separator", pbo.DefaultSeparator, "separator used in entry names")
	a.bind("store_timestamps", flags.Lookup("store-timestamps"))
	a.bind("separator", flags.Lookup("separator"))
	return cmd
}

func (a *app) newSetMetaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-meta <archive> <key> <value>",
		Short: "Set a product entry",
		Long: `Set the value of a product entry, matching the key without regard to
case, or append a new pair. The archive is rewritten uncompressed.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := pbo.Open(args[0], a.archiveOptions()...)
			if err != nil {
				return err
			}
			defer ar.Close()

			if err := ar.SetProductPair(args[1], args[2]); err != nil {
				return err
			}
			stats, err := ar.Save()
			if err != nil {
				return err
			}
			return a.reportSave(cmd, args[0], stats)
		},
	}
}
