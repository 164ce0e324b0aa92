package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/meigma/pbo"
)

func (a *app) newListCmd() *cobra.Command {
	var withDigest bool
	cmd := &cobra.Command{
		Use:   "list <archive>",
		Short: "List archive entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			headers := []string{"NAME", "SIZE", "STORED", "PACKING", "MODIFIED"}
			if withDigest {
				headers = append(headers, "DIGEST")
			}
			t := table.New().
				Border(lipgloss.HiddenBorder()).
				Headers(headers...)

			for e := range ar.All() {
				modified := "-"
				if !e.ModTime().IsZero() {
					modified = e.ModTime().Format("2006-01-02 15:04:05")
				}
				row := []string{
					e.Name(),
					strconv.FormatInt(e.Size(), 10),
					strconv.FormatInt(e.DataSize(), 10),
					e.Packing().String(),
					modified,
				}
				if withDigest {
					d, err := e.Digest()
					if err != nil {
						return err
					}
					row = append(row, d.String())
				}
				t.Row(row...)
			}

			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&withDigest, "digest", false, "show the content digest of each entry")
	return cmd
}

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <archive>",
		Short: "Show product metadata and totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(args[0]))

			var logical, stored int64
			packed := 0
			for e := range ar.All() {
				logical += e.Size()
				stored += e.DataSize()
				if e.Packing() == pbo.PackingPacked {
					packed++
				}
			}
			fmt.Fprintf(out, "entries: %d (%d packed)\n", ar.Len(), packed)
			fmt.Fprintf(out, "size:    %d bytes (%d stored)\n", logical, stored)

			pairs := ar.ProductPairs()
			if len(pairs) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("no product entries"))
				return nil
			}
			fmt.Fprintln(out, titleStyle.Render("product"))
			for _, p := range pairs {
				fmt.Fprintf(out, "  %s = %s\n", p.Key, p.Value)
			}
			if raw := ar.ProductEntries(); len(raw)%2 == 1 {
				fmt.Fprintf(out, "  %s %s\n", warningStyle.Render("unpaired:"), raw[len(raw)-1])
			}
			return nil
		},
	}
}

func (a *app) newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <archive> <entry>",
		Short: "Write an entry's content to stdout",
		Long: `Write an entry's content to stdout. The entry name may use either
slash or backslash separators.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ar, err := a.openReadOnly(args[0])
			if err != nil {
				return err
			}
			defer ar.Close()

			e, ok := ar.Entry(args[1])
			if !ok {
				return fmt.Errorf("entry %q not found in %s", args[1], args[0])
			}
			data, err := e.ReadAll()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
