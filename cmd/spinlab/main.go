package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/san-kum/spinlab/internal/api"
	"github.com/san-kum/spinlab/internal/config"
	"github.com/san-kum/spinlab/internal/engine"
	"github.com/san-kum/spinlab/internal/logging"
	"github.com/san-kum/spinlab/internal/metrics"
	"github.com/san-kum/spinlab/internal/neighbours"
	"github.com/san-kum/spinlab/internal/spin"
	"github.com/san-kum/spinlab/internal/state"
	"github.com/san-kum/spinlab/internal/storage"
	"github.com/san-kum/spinlab/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string
	logFormat  string

	idxImage int
	idxChain int

	boundary   string
	muS        float64
	field      float64
	fieldDir   string
	aniso      float64
	anisoDir   string
	jij        string
	dij        string
	ddiCutoff  float64
	maxSteps   int
	stepSize   float64
	nShells    int
	outFile    string
	metricAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "spinlab",
		Short:         "hamiltonian parameter lab for atomistic spin lattices",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "preset as lattice/name, e.g. square/skyrmion")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "apply parameters to an image and print them",
		RunE:  showParams,
	}
	addParamFlags(paramsCmd)
	addIndexFlags(paramsCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "relax every image of the chain and store the result",
		RunE:  runRelax,
	}
	addParamFlags(runCmd)
	addRelaxFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "relax one image with a live view; field and anisotropy are adjustable",
		RunE:  runLive,
	}
	addParamFlags(liveCmd)
	addIndexFlags(liveCmd)
	addRelaxFlags(liveCmd)
	liveCmd.Flags().StringVar(&metricAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")

	shellsCmd := &cobra.Command{
		Use:   "shells",
		Short: "list neighbour shells of the configured lattice",
		RunE:  showShells,
	}
	shellsCmd.Flags().IntVar(&nShells, "n", 3, "number of shells")

	presetsCmd := &cobra.Command{
		Use:   "presets [lattice]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the energy trace of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	rootCmd.AddCommand(paramsCmd, runCmd, liveCmd, shellsCmd, presetsCmd, listCmd, plotCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addParamFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&boundary, "boundary", "", "periodic boundaries as three flags, e.g. 1,1,0")
	f.Float64Var(&muS, "mu-s", spin.DefaultMuS, "magnetic moment per site (Bohr magnetons)")
	f.Float64Var(&field, "field", 0, "external field magnitude (T)")
	f.StringVar(&fieldDir, "field-dir", "0,0,1", "external field direction")
	f.Float64Var(&aniso, "anisotropy", 0, "uniaxial anisotropy magnitude")
	f.StringVar(&anisoDir, "anisotropy-dir", "0,0,1", "anisotropy axis")
	f.StringVar(&jij, "jij", "", "exchange constants per shell, comma separated")
	f.StringVar(&dij, "dij", "", "DMI constants per shell, comma separated")
	f.Float64Var(&ddiCutoff, "ddi-cutoff", 0, "dipolar cutoff radius (not supported by either model)")
}

func addIndexFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&idxImage, "image", -1, "image index (-1 for the active image)")
	cmd.Flags().IntVar(&idxChain, "chain", -1, "chain index (-1 for the active chain)")
}

func addRelaxFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&maxSteps, "steps", 0, "step budget (overrides config)")
	cmd.Flags().Float64Var(&stepSize, "step-size", 0, "descent step size (overrides config)")
}

func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		lattice, name, ok := strings.Cut(preset, "/")
		if !ok {
			return nil, fmt.Errorf("preset must be lattice/name, got %q", preset)
		}
		cfg = config.GetPreset(lattice, name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(lattice))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, cfg.Validate()
}

// setup builds the logger and the state described by the flags.
func setup() (*state.State, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, nil, err
	}
	st, err := state.New(cfg, logger, metrics.NewCollector())
	if err != nil {
		return nil, logger, err
	}
	return st, logger, nil
}

func relaxConfig(cmd *cobra.Command, cfg *config.Config) engine.Config {
	rc := engine.DefaultConfig()
	rc.StepSize = cfg.Relax.StepSize
	rc.MaxSteps = cfg.Relax.MaxSteps
	rc.Tolerance = cfg.Relax.Tolerance
	if cmd.Flags().Changed("steps") {
		rc.MaxSteps = maxSteps
	}
	if cmd.Flags().Changed("step-size") {
		rc.StepSize = stepSize
	}
	return rc
}

func parseFloats(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return []float64{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseVector(s string) (spin.Vector3, error) {
	vals, err := parseFloats(s)
	if err != nil {
		return spin.Vector3{}, err
	}
	if len(vals) != 3 {
		return spin.Vector3{}, fmt.Errorf("expected three components, got %q", s)
	}
	return spin.Vector3{vals[0], vals[1], vals[2]}, nil
}

func parseBoundary(s string) ([3]bool, error) {
	var out [3]bool
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("expected three boundary flags, got %q", s)
	}
	for i, p := range parts {
		b, err := strconv.ParseBool(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("invalid boundary flag %q: %w", p, err)
		}
		out[i] = b
	}
	return out, nil
}

// applyParams applies every parameter flag the user set to one image.
func applyParams(cmd *cobra.Command, st *state.State, img, chain int) error {
	f := cmd.Flags()

	if f.Changed("boundary") {
		bc, err := parseBoundary(boundary)
		if err != nil {
			return err
		}
		if err := api.SetBoundaryConditions(st, bc, img, chain); err != nil {
			return err
		}
	}
	if f.Changed("mu-s") {
		if err := api.SetMuS(st, muS, img, chain); err != nil {
			return err
		}
	}
	if f.Changed("field") || f.Changed("field-dir") {
		dir, err := parseVector(fieldDir)
		if err != nil {
			return err
		}
		if err := api.SetField(st, field, dir, img, chain); err != nil {
			return err
		}
	}
	if f.Changed("anisotropy") || f.Changed("anisotropy-dir") {
		dir, err := parseVector(anisoDir)
		if err != nil {
			return err
		}
		if err := api.SetAnisotropy(st, aniso, dir, img, chain); err != nil {
			return err
		}
	}
	if f.Changed("jij") {
		vals, err := parseFloats(jij)
		if err != nil {
			return err
		}
		if err := api.SetExchange(st, len(vals), vals, img, chain); err != nil {
			return err
		}
	}
	if f.Changed("dij") {
		vals, err := parseFloats(dij)
		if err != nil {
			return err
		}
		if err := api.SetDMI(st, len(vals), vals, img, chain); err != nil {
			return err
		}
	}
	if f.Changed("ddi-cutoff") {
		err := api.SetDDI(st, ddiCutoff, img, chain)
		if errors.Is(err, spin.ErrUnsupported) {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		} else if err != nil {
			return err
		}
	}
	return nil
}

func showParams(cmd *cobra.Command, args []string) error {
	st, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := applyParams(cmd, st, idxImage, idxChain); err != nil {
		return err
	}
	return printSummary(st, idxImage, idxChain)
}

func printSummary(st *state.State, img, chain int) error {
	sum, err := api.Describe(st, img, chain)
	if err != nil {
		return err
	}

	fmt.Println(tui.Header(sum.Name))
	fmt.Println(tui.Row("boundary", fmt.Sprintf("%v", sum.Boundary)))
	fmt.Println(tui.Row("mu_s", fmt.Sprintf("%g", sum.MuS)))
	fmt.Println(tui.Row("field", fmt.Sprintf("%g T along %v", sum.Field, sum.FieldDir)))
	fmt.Println(tui.Row("anisotropy", fmt.Sprintf("%g along %v", sum.Anisotropy, sum.AnisoDir)))
	if sum.Exchange != nil {
		fmt.Println(tui.Row("exchange", fmt.Sprintf("%v", sum.Exchange)))
		fmt.Println(tui.Row("dmi", fmt.Sprintf("%v", sum.DMI)))
	} else {
		fmt.Println(tui.Row("exchange", fmt.Sprintf("%d bonds", sum.NExchange)))
		fmt.Println(tui.Row("dmi", fmt.Sprintf("%d bonds", sum.NDMI)))
	}
	fmt.Println(tui.Row("active", fmt.Sprintf("%v", sum.Active)))
	return nil
}

func runRelax(cmd *cobra.Command, args []string) error {
	st, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	chain, err := st.Chain(-1)
	if err != nil {
		return err
	}
	images := chain.Images()
	systems := make([]engine.System, len(images))
	for i, img := range images {
		if err := applyParams(cmd, st, i, -1); err != nil {
			return err
		}
		systems[i] = img
	}

	cfg := st.Config()
	rc := relaxConfig(cmd, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("relaxing %d image(s) on a %s lattice (%d spins)...\n", len(images), cfg.Geometry.Lattice, st.Geometry().NSpins)
	start := time.Now()
	results, err := engine.NewEnsemble(metrics.Default, 0).Run(ctx, systems, rc)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	elapsed := time.Since(start)

	store := storage.New(cfg.DataDir)
	if err := store.Init(); err != nil {
		return err
	}

	fmt.Printf("completed in %v\n\n", elapsed)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tRUN ID\tSTEPS\tCONVERGED\tENERGY\tMAX TORQUE")
	for i, res := range results {
		if res == nil || len(res.Energies) == 0 {
			continue
		}
		img := images[i]
		runID, err := store.Save(storage.RunMetadata{
			Lattice:     cfg.Geometry.Lattice,
			Hamiltonian: img.Params.Name(),
			Chirality:   img.Params.Chirality().String(),
			Image:       i,
			Chain:       0,
			Seed:        cfg.Relax.Seed,
			StepSize:    rc.StepSize,
			Tolerance:   rc.Tolerance,
		}, res, img.Spins())
		if err != nil {
			return err
		}
		logger.Info("stored relaxation run", zap.String("run", runID), zap.Int("image", i))
		fmt.Fprintf(w, "%d\t%s\t%d\t%t\t%.6f\t%.3e\n", i, runID, res.StepsTaken, res.Converged, res.Final.Total(), res.MaxTorque)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	st, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := applyParams(cmd, st, idxImage, idxChain); err != nil {
		return err
	}

	if metricAddr != "" {
		srv := &http.Server{Addr: metricAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	res, err := tui.RunLive(tui.LiveOptions{
		State:    st,
		IdxImage: idxImage,
		IdxChain: idxChain,
		Relax:    relaxConfig(cmd, st.Config()),
	})
	if err != nil {
		return err
	}
	if res == nil {
		fmt.Println("relaxation interrupted")
		return nil
	}
	fmt.Printf("steps: %d  converged: %t  energy: %.6f\n", res.StepsTaken, res.Converged, res.Final.Total())
	return nil
}

func showShells(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g, err := cfg.BuildGeometry()
	if err != nil {
		return err
	}

	finder := neighbours.NewFinder()
	found, err := finder.InShells(g, nShells)
	if err != nil {
		return err
	}
	counts := make([]int, nShells)
	for _, n := range found {
		if n.I == 0 {
			counts[n.Shell]++
		}
	}

	fmt.Println(tui.Header(fmt.Sprintf("%s lattice, %d basis atom(s)", cfg.Geometry.Lattice, g.NCellAtoms())))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHELL\tRADIUS\tNEIGHBOURS")
	for i, r := range finder.ShellRadii(g, 0, nShells) {
		fmt.Fprintf(w, "%d\t%.4f\t%d\n", i+1, r, counts[i])
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	lattices := make([]string, 0, len(config.Presets))
	if len(args) == 1 {
		lattices = append(lattices, args[0])
	} else {
		for _, l := range []string{"sc", "square", "hex"} {
			if _, ok := config.Presets[l]; ok {
				lattices = append(lattices, l)
			}
		}
	}

	for _, l := range lattices {
		presets := config.ListPresets(l)
		if len(presets) == 0 {
			fmt.Printf("no presets for lattice: %s\n", l)
			continue
		}
		fmt.Printf("presets for %s:\n", l)
		for _, p := range presets {
			cfg := config.GetPreset(l, p)
			fmt.Printf("  %-12s %s\n", p, tui.Dim(fmt.Sprintf("%s, %s, %v cells", cfg.Hamiltonian.Kind, cfg.ChiralityValue(), cfg.Geometry.NCells)))
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	runs, err := storage.New(cfg.DataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLATTICE\tHAMILTONIAN\tTIME\tSTEPS\tCONVERGED\tENERGY")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\t%.6f\n",
			run.ID,
			run.Lattice,
			run.Hamiltonian,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.StepsTaken,
			run.Converged,
			run.FinalEnergy,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := storage.New(cfg.DataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	energies, err := store.LoadEnergies(args[0])
	if err != nil {
		return err
	}
	if len(energies) < 2 {
		return fmt.Errorf("run %s has too few steps to plot", args[0])
	}

	fmt.Println(tui.Row("run", meta.ID))
	fmt.Println(tui.Row("hamiltonian", meta.Hamiltonian))
	fmt.Println(tui.Row("steps", strconv.Itoa(len(energies))))
	fmt.Println()
	fmt.Println(tui.PlotEnergies(energies, 80, 12, "total energy vs step"))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store := storage.New(cfg.DataDir)
	if outFile != "" {
		return store.ExportJSON(args[0], outFile)
	}
	return store.WriteJSON(args[0], os.Stdout)
}
