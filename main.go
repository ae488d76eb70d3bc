// Package main provides the burnscar command: burn mapping from
// Sentinel-1 backscatter using the relative burn ratio.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"burnscar/internal/app"
	"burnscar/internal/config"
	"burnscar/internal/log"
	"burnscar/internal/project"
	"burnscar/internal/version"

	"github.com/spf13/cobra"
)

var (
	debug      bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "burnscar",
	Short: "Map burn scars from before/after Sentinel-1 backscatter",
	Long: `burnscar averages dual-polarisation (VV/VH) backscatter per epoch,
computes the relative burn ratio (after-before)/(after+before) per
polarisation and thresholds it into a cleaned burn mask.

All inputs must share one pixel grid (same size, geotransform and CRS).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return log.Init(debug)
	},
}

var averageCmd = &cobra.Command{
	Use:   "average <folder>",
	Short: "Average a folder of acquisitions into before/after composites",
	Long: `Partitions every dated GeoTIFF in the folder at --cutoff (strictly
earlier is before, the cutoff day and later is after) and writes
<pol>_before.tif and <pol>_after.tif.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRunner(cmd, args)
		if err != nil {
			return err
		}
		return report(r.Average(cmd.Context()))
	},
}

var ratioCmd = &cobra.Command{
	Use:   "ratio (<before.tif> <after.tif> | --folder <dir> --cutoff <date>)",
	Short: "Compute RBR rasters for every polarisation in both epochs",
	Args:  pairOrFolder,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRunner(cmd, args)
		if err != nil {
			return err
		}
		return report(r.Ratio(cmd.Context()))
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect (<before.tif> <after.tif> | --folder <dir> --cutoff <date>)",
	Short: "Run the full pipeline and write RBR rasters and the burn mask",
	Long: `Writes RBR_<pol>.tif, burn_mask.tif (0 unburned, 1 burned, 255
excluded) and manifest.json into --outdir.

Examples:
  burnscar detect pre.tif post.tif --domain db --outdir out
  burnscar detect --folder scenes --cutoff 2023-07-18 --domain linear --water water.tif`,
	Args: pairOrFolder,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRunner(cmd, args)
		if err != nil {
			return err
		}
		return report(r.Detect(cmd.Context()))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")

	addInputFlags(averageCmd)
	addInputFlags(ratioCmd)
	addInputFlags(detectCmd)
	addFolderFlag(ratioCmd)
	addFolderFlag(detectCmd)
	addDetectFlags(detectCmd)
	registerCompletions()

	rootCmd.AddCommand(averageCmd)
	rootCmd.AddCommand(ratioCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Logger().Warnw("interrupted")
		} else {
			log.Logger().Errorw("run failed", "error", err)
		}
		log.Sync()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	log.Sync()
}

// newRunner resolves the configuration (defaults, then --config, then
// flags set on the command line) and the inputs.
func newRunner(cmd *cobra.Command, args []string) (*app.Runner, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := app.New(cfg, log.Logger())
	switch {
	case cmd.Name() == "average":
		r.Folder = args[0]
	case len(args) == 2:
		r.Before, r.After = args[0], args[1]
	default:
		r.Folder, _ = cmd.Flags().GetString("folder")
	}
	log.Logger().Infow("start", "run", r.RunID(), "command", cmd.Name(), "version", version.Version)
	return r, nil
}

func report(m *project.Manifest, err error) error {
	if err != nil {
		return err
	}
	for _, o := range m.Outputs {
		fmt.Println(o.Path)
	}
	if m.Counts != nil {
		fmt.Printf("burned %d, unburned %d, excluded %d pixels\n", m.Counts.Burned, m.Counts.Unburned, m.Counts.Excluded)
	}
	return nil
}
