package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nscgen/nscgen/internal/ir"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Network string
}

// ValidationResult holds the JSON-format validation outcome.
type ValidationResult struct {
	Valid  bool                  `json:"valid"`
	Errors []ir.ValidationError  `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "validate",
		Short:         "Validate a network IR file without generating code",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Network, "network", "", "path to the network IR JSON file (required)")
	cmd.MarkFlagRequired("network")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("loading network from %s", opts.Network)
	network, loadErrs := LoadNetwork(opts.Network)
	if len(loadErrs) > 0 {
		return outputValidateLoadErrors(formatter, loadErrs)
	}

	violations := ir.Validate(network)
	if len(violations) > 0 {
		return outputValidationFailure(formatter, violations)
	}

	return outputValidateSuccess(formatter)
}

func outputValidateLoadErrors(formatter *OutputFormatter, errs []error) error {
	var loadErr *LoadError
	if errors.As(errs[0], &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		return NewExitError(ExitCommandError, loadErr.Message)
	}
	_ = formatter.Error("E999", errs[0].Error(), nil)
	return NewExitError(ExitCommandError, errs[0].Error())
}

func outputValidateSuccess(formatter *OutputFormatter) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "network is valid")
	return nil
}

func outputValidationFailure(formatter *OutputFormatter, violations []ir.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.Success(ValidationResult{Valid: false, Errors: violations}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(violations)))
	}

	fmt.Fprintln(formatter.Writer, "network is invalid")
	for _, v := range violations {
		fmt.Fprintf(formatter.Writer, "  [%s] %s: %s\n", v.Code, v.Field, v.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(violations)))
}
