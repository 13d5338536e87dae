package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nscgen/nscgen/internal/codegen"
	"github.com/nscgen/nscgen/internal/config"
	"github.com/nscgen/nscgen/internal/genstore"
	"github.com/nscgen/nscgen/internal/ir"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Network string
	Config  string
	Out     string
	Cache   string
}

// RunManifest is the YAML record written alongside generated output,
// naming every file produced and the diagnostics collected while
// producing it (§11.1).
type RunManifest struct {
	RunID       string            `yaml:"run_id" json:"run_id"`
	Network     string            `yaml:"network" json:"network"`
	Files       map[string]string `yaml:"files" json:"files"` // filename -> sha256 hex digest
	Diagnostics []manifestDiag    `yaml:"diagnostics,omitempty" json:"diagnostics,omitempty"`
	CacheHit    bool              `yaml:"cache_hit" json:"cache_hit"`
}

type manifestDiag struct {
	Severity string `yaml:"severity" json:"severity"`
	Group    string `yaml:"group" json:"group"`
	Message  string `yaml:"message" json:"message"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "generate",
		Short:         "Generate calcNeuronsCPU/calcSynapsesCPU source from a network IR file",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Network, "network", "", "path to the network IR JSON file (required)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "path to the generation config CUE file (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output directory for generated source (required)")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to a generation cache database (optional)")
	cmd.MarkFlagRequired("network")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	runID := uuid.Must(uuid.NewV7()).String()

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logger.Info("loading network", "run_id", runID, "path", opts.Network)
	network, loadErrs := LoadNetwork(opts.Network)
	if len(loadErrs) > 0 {
		return outputGenerateLoadErrors(formatter, loadErrs)
	}

	if violations := ir.Validate(network); len(violations) > 0 {
		return outputValidationFailure(formatter, violations)
	}

	configSrc, err := os.ReadFile(opts.Config)
	if err != nil {
		return outputGenerateError(formatter, ErrCodeConfigRead, err.Error())
	}
	cfg, cfgErrs := config.Load(configSrc)
	if len(cfgErrs) > 0 {
		return outputConfigErrors(formatter, cfgErrs)
	}

	contentHash := ir.ContentHash(network, cfg.DefaultVarMode, fmt.Sprintf("%v", cfg.Precision))

	var store *genstore.Store
	if opts.Cache != "" {
		logger.Info("opening generation cache", "run_id", runID, "path", opts.Cache)
		store, err = genstore.Open(opts.Cache)
		if err != nil {
			return outputGenerateError(formatter, ErrCodeCacheOpen, err.Error())
		}
		defer store.Close()

		if cached, hit, lookupErr := store.Lookup(contentHash); lookupErr == nil && hit {
			logger.Info("cache hit, skipping generation", "run_id", runID, "hash", contentHash)
			return outputGenerateSuccess(formatter, RunManifest{
				RunID:    runID,
				Network:  network.Name,
				Files:    cached,
				CacheHit: true,
			})
		}
	}

	logger.Info("generating", "run_id", runID, "network", network.Name)
	files, diags, err := codegen.Generate(network, cfg)
	if err != nil {
		var genErr *codegen.GenerationError
		if errors.As(err, &genErr) {
			return outputGenerateError(formatter, ErrCodeGeneration, genErr.Error())
		}
		return outputGenerateError(formatter, ErrCodeGeneration, err.Error())
	}

	for _, d := range diags {
		if d.Severity == ir.SeverityWarning {
			logger.Warn(d.Message, "run_id", runID, "group", d.Group)
		} else {
			logger.Info(d.Message, "run_id", runID, "group", d.Group)
		}
	}

	if err := os.MkdirAll(opts.Out, 0o755); err != nil {
		wErr := &WriteError{Path: opts.Out, Err: err}
		return outputGenerateError(formatter, ErrCodeWriteFailed, wErr.Error())
	}

	shas, writeErr := writeGeneratedFiles(opts.Out, files)
	if writeErr != nil {
		removePartialOutput(opts.Out, files)
		var wErr *WriteError
		errors.As(writeErr, &wErr)
		return outputGenerateError(formatter, ErrCodeWriteFailed, wErr.Error())
	}

	if store != nil {
		if err := store.Record(contentHash, network.Name, shas); err != nil {
			logger.Warn("failed to record generation cache entry", "run_id", runID, "error", err)
		}
	}

	manifest := RunManifest{RunID: runID, Network: network.Name, Files: shas}
	for _, d := range diags {
		manifest.Diagnostics = append(manifest.Diagnostics, manifestDiag{
			Severity: string(d.Severity), Group: d.Group, Message: d.Message,
		})
	}
	if err := writeManifest(opts.Out, manifest); err != nil {
		logger.Warn("failed to write run manifest", "run_id", runID, "error", err)
	}

	return outputGenerateSuccess(formatter, manifest)
}

func writeGeneratedFiles(dir string, files map[string]string) (map[string]string, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	shas := make(map[string]string, len(files))
	for _, name := range names {
		content := files[name]
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return shas, &WriteError{Path: path, Err: err}
		}
		sum := sha256.Sum256([]byte(content))
		shas[name] = hex.EncodeToString(sum[:])
	}
	return shas, nil
}

func removePartialOutput(dir string, files map[string]string) {
	for name := range files {
		os.Remove(filepath.Join(dir, name))
	}
}

func writeManifest(dir string, manifest RunManifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "manifest.yaml"), data, 0o644)
}

const (
	ErrCodeConfigRead = "E410"
	ErrCodeCacheOpen  = "E411"
	ErrCodeGeneration = "E412"
	ErrCodeWriteFailed = "E413"
)

func outputGenerateLoadErrors(formatter *OutputFormatter, errs []error) error {
	var loadErr *LoadError
	if errors.As(errs[0], &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Message)
	}
	_ = formatter.Error("E999", errs[0].Error(), nil)
	return NewExitError(ExitCommandError, errs[0].Error())
}

func outputConfigErrors(formatter *OutputFormatter, errs []error) error {
	_ = formatter.Error("E3xx", errs[0].Error(), errs)
	return NewExitError(ExitCommandError, fmt.Sprintf("config invalid: %d error(s)", len(errs)))
}

func outputGenerateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, message)
}

func outputGenerateSuccess(formatter *OutputFormatter, manifest RunManifest) error {
	if formatter.Format == "json" {
		return json.NewEncoder(formatter.Writer).Encode(CLIResponse{Status: "ok", Data: manifest, RunID: manifest.RunID})
	}
	fmt.Fprintf(formatter.Writer, "generated %d file(s) for %s (run %s)\n", len(manifest.Files), manifest.Network, manifest.RunID)
	if manifest.CacheHit {
		fmt.Fprintln(formatter.Writer, "  (served from cache)")
	}
	names := make([]string, 0, len(manifest.Files))
	for name := range manifest.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "  %s  %s\n", manifest.Files[name], name)
	}
	return nil
}
