// Package app runs the burn-mapping pipeline: ingestion, epoch averaging,
// ratio, classification, then persistence of every product.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"burnscar/internal/burnmask"
	"burnscar/internal/config"
	"burnscar/internal/project"
	"burnscar/internal/raster"
	"burnscar/internal/rbr"
	"burnscar/internal/version"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner executes one pipeline invocation. Inputs are either a folder of
// dated acquisitions split at Config.Cutoff, or an explicit Before/After
// pair.
type Runner struct {
	Config config.Config
	Logger *zap.SugaredLogger

	Folder string
	Before string
	After  string

	runID string
	log   *zap.SugaredLogger
}

// New creates a runner with a fresh run ID.
func New(cfg config.Config, logger *zap.SugaredLogger) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	id := uuid.NewString()
	return &Runner{
		Config: cfg,
		Logger: logger,
		runID:  id,
		log:    logger.With("run", id),
	}
}

// RunID returns the identifier recorded in logs and the manifest.
func (r *Runner) RunID() string { return r.runID }

func (r *Runner) outDir() string {
	if r.Config.OutDir == "" {
		return "."
	}
	return r.Config.OutDir
}

func (r *Runner) manifestPath() string {
	return filepath.Join(r.outDir(), project.ManifestName)
}

func (r *Runner) check() error {
	if err := r.Config.Validate(); err != nil {
		return err
	}
	if r.Folder == "" && (r.Before == "" || r.After == "") {
		return errors.New("need a folder or a before/after pair")
	}
	if r.Folder != "" && r.Config.Cutoff == "" {
		return errors.New("folder input needs a cutoff date")
	}
	return nil
}

// Average writes the per-epoch, per-polarization composites of a folder.
func (r *Runner) Average(ctx context.Context) (*project.Manifest, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	if r.Folder == "" {
		return nil, errors.New("average needs a folder")
	}

	in, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	m := r.manifest("average", in)
	var outs []pending
	for _, e := range in.epochs() {
		for _, pol := range raster.Polarizations {
			c, ok := in.composites[e][pol]
			if !ok {
				continue
			}
			outs = append(outs, floatOutput(r.outDir(), fmt.Sprintf("%s_%s.tif", pol, e), "average", pol, c.Grid, c.Band))
		}
	}
	if err := r.persist(ctx, m, outs); err != nil {
		return nil, err
	}
	return m, nil
}

// Ratio writes one RBR raster per polarization common to both epochs.
func (r *Runner) Ratio(ctx context.Context) (*project.Manifest, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	in, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	res, err := r.ratios(ctx, in, nil)
	if err != nil {
		return nil, err
	}

	m := r.manifest("ratio", in)
	recordStats(m, res)
	if err := r.persist(ctx, m, ratioOutputs(r.outDir(), res)); err != nil {
		return nil, err
	}
	return m, nil
}

// Detect runs the full pipeline and writes the RBR rasters and burn mask.
func (r *Runner) Detect(ctx context.Context) (*project.Manifest, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	in, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	conf, err := r.confounders(in.grid)
	if err != nil {
		return nil, err
	}
	res, err := r.ratios(ctx, in, conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	det, err := burnmask.Detect(res, r.Config.BurnParams())
	if err != nil {
		return nil, err
	}
	r.log.Infow("burn mask",
		"rule", det.Selection.Rule,
		"bands", det.Selection.Bands,
		"burned", det.Final.Burned,
		"unburned", det.Final.Unburned,
		"excluded", det.Final.Excluded,
		"regions_removed", det.Clean.RegionsRemoved,
		"holes_filled", det.Clean.HolesFilled)

	m := r.manifest("detect", in)
	recordStats(m, res)
	m.Rule = string(det.Selection.Rule)
	for _, p := range det.Selection.Bands {
		m.RuleBands = append(m.RuleBands, string(p))
	}
	m.RawCounts = &det.Raw
	m.Counts = &det.Final
	m.Morphology = &det.Clean

	outs := ratioOutputs(r.outDir(), res)
	outs = append(outs, maskOutput(r.outDir(), res.Grid, det.Mask))
	if err := r.persist(ctx, m, outs); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Runner) ratios(ctx context.Context, in *inputs, conf *raster.Mask) (*rbr.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := rbr.ComputeAll(ctx, in.grid, in.bands(beforeEpoch), in.bands(afterEpoch), conf,
		rbr.Options{Workers: r.Config.Workers})
	if err != nil {
		return nil, err
	}
	for _, p := range res.Skipped {
		r.log.Warnw("polarization in one epoch only, skipped", "pol", p)
	}
	for _, p := range res.Polarizations() {
		r.log.Infow("ratio", "pol", p, "stats", res.Stats[p].String())
	}
	return res, nil
}

func (r *Runner) manifest(command string, in *inputs) *project.Manifest {
	m := project.New(r.runID, command, version.Version)
	m.Config = r.Config
	mp := r.manifestPath()
	for _, src := range in.sources {
		m.AddInput(mp, src.Path, string(src.Epoch), src.Acquired, src.Bands)
	}
	return m
}

func recordStats(m *project.Manifest, res *rbr.Result) {
	for _, p := range res.Polarizations() {
		m.Stats[string(p)] = res.Stats[p]
	}
	for _, p := range res.Skipped {
		m.Skipped = append(m.Skipped, string(p))
	}
}
