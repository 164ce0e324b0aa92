package main

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/pbo"
)

// app carries state shared by all commands of one invocation.
type app struct {
	v           *viper.Viper
	cfg         *config
	cfgFile     string
	logger      *slog.Logger
	profile     profileFlags
	stopProfile func() error
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}

	root := &cobra.Command{
		Use:   "pbo",
		Short: "Inspect, build and unpack PBO archives",
		Long: titleStyle.Render("pbo") + mutedStyle.Render(" - PBO archive tool") + `

pbo reads archives with stored and LZSS-packed entries and writes
uncompressed archives. Settings come from flags, PBO_* environment
variables and an optional config file.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.stopProfile == nil {
				return nil
			}
			return a.stopProfile()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (toml, yaml or json)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
	flags.String("offset-mode", pbo.OffsetOriginalSize.String(), `how data offsets advance when reading: "original" or "data"`)
	flags.Bool("overlapping-copies", false, "decode packed entries with a per-byte history (LZSS:8bit packers)")
	flags.StringVar(&a.profile.fgProfile, "fgprofile", "", "write an fgprof (wall clock) profile to file")
	flags.StringVar(&a.profile.cpuProfile, "cpuprofile", "", "write a CPU profile to file")
	flags.StringVar(&a.profile.traceFile, "trace", "", "write an execution trace to file")
	for _, name := range []string{"fgprofile", "cpuprofile", "trace"} {
		_ = flags.MarkHidden(name) //nolint:errcheck // flag defined above
	}
	a.bind("verbose", flags.Lookup("verbose"))
	a.bind("offset_mode", flags.Lookup("offset-mode"))
	a.bind("overlapping_copies", flags.Lookup("overlapping-copies"))

	root.AddCommand(
		a.newListCmd(),
		a.newInfoCmd(),
		a.newCatCmd(),
		a.newPackCmd(),
		a.newUnpackCmd(),
		a.newExportCmd(),
		a.newSetMetaCmd(),
	)
	return root
}

// setup loads configuration, installs the logger and starts profiling.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix: "pbo",
		Level:  level,
	})
	a.logger = slog.New(handler)

	stop, err := a.profile.start()
	if err != nil {
		return err
	}
	a.stopProfile = stop
	return nil
}

// archiveOptions returns the library options implied by the configuration.
func (a *app) archiveOptions(extra ...pbo.Option) []pbo.Option {
	mode, _ := parseOffsetMode(a.cfg.OffsetMode) //nolint:errcheck // validated by loadConfig
	opts := []pbo.Option{
		pbo.WithLogger(a.logger),
		pbo.WithOffsetMode(mode),
		pbo.WithOverlappingCopies(a.cfg.Overlapping),
		pbo.WithStoreTimestamps(a.cfg.StoreTimestamps),
	}
	return append(opts, extra...)
}

func (a *app) openReadOnly(path string) (*pbo.Archive, error) {
	return pbo.Open(path, a.archiveOptions(pbo.WithReadOnly(true))...)
}

// reportSave logs degraded entries and turns them into a distinct exit code.
func (a *app) reportSave(cmd *cobra.Command, path string, stats pbo.SaveStats) error {
	for _, d := range stats.Degraded {
		a.logger.Warn("entry written empty", "name", d.Name, "error", d.Err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d entries, %d bytes)\n",
		successStyle.Render("wrote"), path, stats.Entries, stats.HeaderBytes+stats.DataBytes)
	if len(stats.Degraded) > 0 {
		return &ExitError{
			Code: exitDegraded,
			Err:  fmt.Errorf("%d entries could not be read and were saved empty", len(stats.Degraded)),
		}
	}
	return nil
}
