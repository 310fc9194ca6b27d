package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/form"
)

// errInvalid is returned by validate once every problem has been printed.
var errInvalid = errors.New("validation failed")

// newValidateCmd creates the `validate` command. It checks the config, the
// survey and the mapping, and reports every problem instead of the first.
func newValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Checks the configuration, survey and field mapping",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if ok := validateAll(cmd.OutOrStdout(), cfg); !ok {
				return errInvalid
			}
			return nil
		},
	}
	lenient(validateCmd)

	validateCmd.Flags().String("mode", config.ModePrefill, "Validate for 'prefill' or 'direct' mode.")
	validateCmd.Flags().String("survey", "", "Survey definition file or builtin:<name>.")
	validateCmd.Flags().String("mapping", "", "Field mapping JSON file.")
	bindFlag(validateCmd, "mode", "form.mode")
	bindFlag(validateCmd, "survey", "form.survey_file")
	bindFlag(validateCmd, "mapping", "form.mapping_file")
	return validateCmd
}

// validateAll prints one line per check and reports whether all passed.
func validateAll(w io.Writer, cfg *config.Config) bool {
	ok := true
	check := func(name string, err error) {
		if err != nil {
			ok = false
			fmt.Fprintf(w, "FAIL %-8s %v\n", name, err)
			return
		}
		fmt.Fprintf(w, "ok   %s\n", name)
	}

	check("config", cfg.Validate())

	survey, err := form.LoadSurvey(cfg.Form().SurveyFile)
	check("survey", err)

	if cfg.Form().Mode != config.ModePrefill {
		return ok
	}
	mapping, err := form.LoadMapping(cfg.Form().MappingFile)
	if err == nil && survey != nil {
		err = mapping.Validate(survey.Fields)
	}
	check("mapping", err)
	return ok
}
