package main

import (
	"errors"
	"strings"

	"burnscar/internal/burnmask"
	"burnscar/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Flag defaults mirror config.Default so --help shows them; only flags
// the user actually set override the YAML file.
func addInputFlags(cmd *cobra.Command) {
	d := config.Default()
	fs := cmd.Flags()
	fs.String("cutoff", "", "Cutoff date YYYY-MM-DD: earlier is before, this day and later is after")
	fs.Bool("recursive", false, "Search the folder recursively")
	fs.String("domain", "", "Input sample domain: linear or db (required)")
	fs.String("domain-before", "", "Override --domain for the before epoch")
	fs.String("domain-after", "", "Override --domain for the after epoch")
	fs.Bool("domain-check", false, "Reject inputs whose values contradict the declared domain")
	fs.StringSlice("bands", nil, "Polarisation of each input band in file order, e.g. VV,VH")
	fs.Int("boxcar", d.Boxcar, "Odd boxcar window applied to each epoch average (0 disables)")
	fs.Int("workers", d.Workers, "Concurrent row blocks (0 uses every CPU)")
	fs.String("outdir", "", "Output directory (default: current directory)")
}

func addFolderFlag(cmd *cobra.Command) {
	cmd.Flags().String("folder", "", "Folder of dated acquisitions, split at --cutoff")
}

func addDetectFlags(cmd *cobra.Command) {
	d := config.Default()
	fs := cmd.Flags()
	fs.Float64("threshold", d.Threshold, "Burned when RBR <= threshold")
	fs.Float64("threshold-vv", d.Threshold, "Threshold for VV (default --threshold)")
	fs.Float64("threshold-vh", d.Threshold, "Threshold for VH (default --threshold)")
	fs.String("rule", "", "Band combination: single, and, or (default single with --band, or with both bands, else single)")
	fs.String("band", "", "Band for the single rule: VV or VH (default VH when present; implies single without --rule)")
	fs.Int("min-region", d.MinRegion, "Remove burned regions smaller than this many pixels")
	fs.Int("max-hole", d.MaxHole, "Fill enclosed unburned holes up to this many pixels")
	fs.String("water", "", "Water mask raster (non-zero excluded)")
	fs.String("layover", "", "Layover/shadow mask raster (non-zero excluded)")
	fs.String("incidence", "", "Local incidence angle raster in degrees")
	fs.Float64("incidence-min", d.Masks.IncidenceMin, "Exclude incidence angles below this")
	fs.Float64("incidence-max", d.Masks.IncidenceMax, "Exclude incidence angles above this")
}

func pairOrFolder(cmd *cobra.Command, args []string) error {
	folder, _ := cmd.Flags().GetString("folder")
	switch {
	case folder != "" && len(args) == 0:
		return nil
	case folder == "" && len(args) == 2:
		return nil
	case folder != "" && len(args) > 0:
		return errors.New("give either --folder or a before/after pair, not both")
	default:
		return errors.New("need <before.tif> <after.tif> or --folder")
	}
}

// applyFlags copies every explicitly set flag into cfg.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	str := map[string]*string{
		"cutoff":        &cfg.Cutoff,
		"domain":        &cfg.Domain,
		"domain-before": &cfg.DomainBefore,
		"domain-after":  &cfg.DomainAfter,
		"outdir":        &cfg.OutDir,
		"rule":          &cfg.Rule,
		"band":          &cfg.Band,
		"water":         &cfg.Masks.Water,
		"layover":       &cfg.Masks.Layover,
		"incidence":     &cfg.Masks.Incidence,
	}
	for name, dst := range str {
		if changed(fs, name) {
			v, err := fs.GetString(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}
	if changed(fs, "domain") {
		cfg.Domain = strings.ToLower(cfg.Domain)
	}
	if changed(fs, "band") {
		cfg.Band = strings.ToUpper(cfg.Band)
	}

	ints := map[string]*int{
		"boxcar":     &cfg.Boxcar,
		"workers":    &cfg.Workers,
		"min-region": &cfg.MinRegion,
		"max-hole":   &cfg.MaxHole,
	}
	for name, dst := range ints {
		if changed(fs, name) {
			v, err := fs.GetInt(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}

	floats := map[string]*float64{
		"threshold":     &cfg.Threshold,
		"incidence-min": &cfg.Masks.IncidenceMin,
		"incidence-max": &cfg.Masks.IncidenceMax,
	}
	for name, dst := range floats {
		if changed(fs, name) {
			v, err := fs.GetFloat64(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}
	for name, dst := range map[string]**float64{"threshold-vv": &cfg.ThresholdVV, "threshold-vh": &cfg.ThresholdVH} {
		if changed(fs, name) {
			v, err := fs.GetFloat64(name)
			if err != nil {
				return err
			}
			*dst = &v
		}
	}

	for name, dst := range map[string]*bool{"recursive": &cfg.Recursive, "domain-check": &cfg.DomainCheck} {
		if changed(fs, name) {
			v, err := fs.GetBool(name)
			if err != nil {
				return err
			}
			*dst = v
		}
	}

	if changed(fs, "bands") {
		bands, err := fs.GetStringSlice("bands")
		if err != nil {
			return err
		}
		cfg.Bands = cfg.Bands[:0]
		for _, b := range bands {
			cfg.Bands = append(cfg.Bands, strings.ToUpper(strings.TrimSpace(b)))
		}
	}
	return nil
}

func changed(fs *pflag.FlagSet, name string) bool {
	return fs.Lookup(name) != nil && fs.Changed(name)
}

// registerCompletions must run after the flags exist.
func registerCompletions() {
	ruleNames := []string{string(burnmask.RuleSingle), string(burnmask.RuleAnd), string(burnmask.RuleOr)}
	_ = detectCmd.RegisterFlagCompletionFunc("rule", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return ruleNames, cobra.ShellCompDirectiveNoFileComp
	})
	for _, c := range []*cobra.Command{averageCmd, ratioCmd, detectCmd} {
		_ = c.RegisterFlagCompletionFunc("domain", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"linear", "db"}, cobra.ShellCompDirectiveNoFileComp
		})
	}
}
