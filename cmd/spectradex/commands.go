package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
	"github.com/kailas-cloud/spectradex/internal/db/sqlite"
	divisionuc "github.com/kailas-cloud/spectradex/internal/usecase/division"
)

// --- Command Variables ---
var (
	parentID      int64
	collID        int64
	collName      string
	collDesc      string
	dataType      string
	predicate     string
	seedFiles     []string
	seedParticles []int64
	seedCount     int
	metricName    string
	threshold     float64
	maxIterations int
	cursorName    string
	color         string
	brushSpecs    []string

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the registry schema",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	importCmd = &cobra.Command{
		Use:   "import [particles.json]",
		Short: "Import particles as a new root collection",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	treeCmd = &cobra.Command{
		Use:   "tree",
		Short: "Print the collection hierarchy",
		Args:  cobra.NoArgs,
		RunE:  runTree,
	}

	divideCmd = &cobra.Command{
		Use:   "divide",
		Short: "Create a child collection of the members matching a predicate",
		Args:  cobra.NoArgs,
		RunE:  runDivide,
	}

	clusterCmd = &cobra.Command{
		Use:   "cluster",
		Short: "Divide a collection into one child per seed by iterative clustering",
		Args:  cobra.NoArgs,
		RunE:  runCluster,
	}

	summarizeCmd = &cobra.Command{
		Use:   "summarize",
		Short: "Print the per-bin histogram summary of a collection",
		Args:  cobra.NoArgs,
		RunE:  runSummarize,
	}
)

func init() {
	importCmd.Flags().StringVar(&collName, "name", "", "collection name (default: file name)")
	importCmd.Flags().StringVar(&collDesc, "description", "", "collection description")
	importCmd.Flags().StringVar(&dataType, "datatype", string(domcol.DataTypeATOFMS), "ATOFMS, AMS or generic")

	divideCmd.Flags().Int64Var(&parentID, "parent", 0, "parent collection id")
	divideCmd.Flags().StringVar(&collName, "name", "", "child collection name")
	divideCmd.Flags().StringVar(&collDesc, "description", "", "child collection description")
	divideCmd.Flags().StringVar(&predicate, "predicate", "", "SQL condition over particle columns (alias p)")
	_ = divideCmd.MarkFlagRequired("parent")
	_ = divideCmd.MarkFlagRequired("name")
	_ = divideCmd.MarkFlagRequired("predicate")

	clusterCmd.Flags().Int64Var(&parentID, "parent", 0, "parent collection id")
	clusterCmd.Flags().StringVar(&collName, "name", "", "child name prefix; children are <name>-1..<name>-k")
	clusterCmd.Flags().StringVar(&collDesc, "description", "", "child collection description")
	clusterCmd.Flags().StringSliceVar(&seedFiles, "seed-file", nil, "seed file (repeatable)")
	clusterCmd.Flags().Int64SliceVar(&seedParticles, "seed-particles", nil, "particle ids used as seeds")
	clusterCmd.Flags().IntVar(&seedCount, "k", 0, "use the first k particles as seeds")
	clusterCmd.Flags().StringVar(&metricName, "metric", "", "euclidean_squared, city_block or dot_product")
	clusterCmd.Flags().Float64Var(&threshold, "threshold", 0, "convergence threshold (default from config)")
	clusterCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "iteration cap (default from config)")
	clusterCmd.Flags().StringVar(&cursorName, "cursor", "", "disk or memory")
	_ = clusterCmd.MarkFlagRequired("parent")
	_ = clusterCmd.MarkFlagRequired("name")
	clusterCmd.MarkFlagsOneRequired("seed-file", "seed-particles", "k")
	clusterCmd.MarkFlagsMutuallyExclusive("seed-file", "seed-particles", "k")

	summarizeCmd.Flags().Int64Var(&collID, "collection", 0, "collection id")
	summarizeCmd.Flags().StringVar(&color, "color", "", "display color of the dataset")
	summarizeCmd.Flags().StringVar(&cursorName, "cursor", "", "disk or memory")
	summarizeCmd.Flags().StringArrayVar(&brushSpecs, "select", nil,
		"brush binLow:binHigh:valueLow:valueHigh (repeatable)")
	_ = summarizeCmd.MarkFlagRequired("collection")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	v, err := a.db.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	n, err := a.collections.Count(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"path":        a.cfg.Database.Path,
		"version":     v,
		"latest":      sqlite.LatestVersion(),
		"collections": n,
	})
}

// particleFile is one particle of an import file.
type particleFile struct {
	ID           int64        `json:"id"`
	Peaks        [][2]float64 `json:"peaks"` // [bin, intensity]
	Filename     string       `json:"filename"`
	AcquiredAt   int64        `json:"acquired_at"`
	Size         float64      `json:"size"`
	LaserPower   float64      `json:"laser_power"`
	ScatterDelay int64        `json:"scatter_delay"`
}

func runImport(cmd *cobra.Command, args []string) error {
	recs, err := readParticles(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	name := collName
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	info, err := a.collections.Import(a.withLogger(cmd.Context()), name, collDesc, domcol.DataType(dataType), recs)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{"id": info.Collection.ID(), "members": info.Members})
}

func readParticles(path string) ([]particle.Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open particles: %w", err)
	}
	defer f.Close()

	var in []particleFile
	if err := json.NewDecoder(f).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	recs := make([]particle.Record, len(in))
	for i, p := range in {
		v := spectrum.New()
		for _, pk := range p.Peaks {
			if err := v.Add(int(pk[0]), pk[1]); err != nil {
				return nil, fmt.Errorf("particle %d: %w", p.ID, err)
			}
		}
		recs[i] = particle.Record{
			Particle: particle.Particle{ID: p.ID, Spectrum: v},
			Meta: particle.Meta{
				DataType:     dataType,
				Filename:     p.Filename,
				AcquiredAt:   p.AcquiredAt,
				Size:         p.Size,
				LaserPower:   p.LaserPower,
				ScatterDelay: p.ScatterDelay,
			},
		}
	}
	return recs, nil
}

func runTree(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	tree, err := a.collections.Tree(cmd.Context())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	var walk func(id int64, depth int)
	walk = func(id int64, depth int) {
		col, _ := tree.Get(id)
		fmt.Fprintf(w, "%s%d %s\n", strings.Repeat("  ", depth), col.ID(), col.Name())
		for _, child := range tree.Children(id) {
			walk(child, depth+1)
		}
	}
	for _, id := range tree.Roots() {
		walk(id, 0)
	}
	return nil
}

func runDivide(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.divisions.Predicate(a.withLogger(cmd.Context()), divisionuc.PredicateRequest{
		ParentID:    parentID,
		Name:        collName,
		Description: collDesc,
		Predicate:   predicate,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{"id": res.ID, "members": res.Members})
}

func runCluster(cmd *cobra.Command, _ []string) error {
	cursor, err := particle.ParseStrategy(cursorName)
	if err != nil {
		return err
	}
	seeds := make([]spectrum.Seed, 0, len(seedFiles))
	for _, path := range seedFiles {
		seed, err := readSeed(path)
		if err != nil {
			return err
		}
		seeds = append(seeds, seed)
	}

	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.divisions.Cluster(a.withLogger(cmd.Context()), divisionuc.ClusterRequest{
		ParentID:      parentID,
		Name:          collName,
		Description:   collDesc,
		SeedParticles: seedParticles,
		Seeds:         seeds,
		K:             seedCount,
		Metric:        spectrum.MetricName(metricName),
		Threshold:     threshold,
		MaxIterations: maxIterations,
		Cursor:        cursor,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"ids":        res.IDs,
		"sizes":      res.Sizes,
		"iterations": res.Iterations,
		"converged":  res.Converged,
	})
}

func readSeed(path string) (spectrum.Seed, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return spectrum.Seed{}, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	seed, err := spectrum.ParseSeed(f)
	if err != nil {
		return spectrum.Seed{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return seed, nil
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	cursor, err := particle.ParseStrategy(cursorName)
	if err != nil {
		return err
	}
	brushes, err := parseBrushes(brushSpecs)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), envName)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := a.withLogger(cmd.Context())
	res, err := a.summaries.Summarize(ctx, collID, color, cursor)
	if err != nil {
		return err
	}
	ds := res.Dataset
	if len(brushes) > 0 {
		if ds, err = histogram.Select(ds, brushes...); err != nil {
			return err
		}
	}

	type binLine struct {
		Bin   int     `json:"bin"`
		Count float64 `json:"count"`
	}
	bins := make([]binLine, 0, ds.NonEmpty())
	for i, h := range ds.Bins {
		if !h.IsEmpty() {
			bins = append(bins, binLine{Bin: ds.Low + i, Count: h.Count()})
		}
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{
		"collection": collID,
		"color":      ds.Color,
		"cached":     res.Cached,
		"particles":  histogram.ParticleIDs(ds).GetCardinality(),
		"bins":       bins,
	})
}

// parseBrushes reads "binLow:binHigh:valueLow:valueHigh" specs.
func parseBrushes(specs []string) ([]histogram.Brush, error) {
	out := make([]histogram.Brush, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("brush %q: want binLow:binHigh:valueLow:valueHigh", spec)
		}
		var b histogram.Brush
		var err error
		if b.BinLow, err = strconv.Atoi(parts[0]); err != nil {
			return nil, fmt.Errorf("brush %q: %w", spec, err)
		}
		if b.BinHigh, err = strconv.Atoi(parts[1]); err != nil {
			return nil, fmt.Errorf("brush %q: %w", spec, err)
		}
		if b.ValueLow, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return nil, fmt.Errorf("brush %q: %w", spec, err)
		}
		if b.ValueHigh, err = strconv.ParseFloat(parts[3], 64); err != nil {
			return nil, fmt.Errorf("brush %q: %w", spec, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
