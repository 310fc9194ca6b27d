package cmd

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/form"
)

// errPreviewMode is returned when preview is asked to work in direct mode.
var errPreviewMode = errors.New("preview only applies to prefill mode")

// newPreviewCmd creates the `preview` command, which prints the prefilled
// URLs a submit run would open without starting a browser.
func newPreviewCmd() *cobra.Command {
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Prints the prefilled URLs a submit run would open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Form().Mode != config.ModePrefill {
				return errPreviewMode
			}

			in, err := loadInputs(cfg)
			if err != nil {
				return err
			}

			seed := cfg.Submit().Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			picker := form.NewPicker(in.survey, rand.New(rand.NewSource(seed)))

			out := cmd.OutOrStdout()
			for i := 1; i <= cfg.Submit().Count; i++ {
				url, err := form.BuildURL(cfg.Form().BaseURL, in.mapping, in.survey.Fields, picker.Pick(cfg.Submit().Randomize))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, url)
			}
			return nil
		},
	}

	previewCmd.Flags().IntP("count", "n", 1, "Number of URLs to print.")
	previewCmd.Flags().Bool("randomize", false, "Pick answers at random from each field's pool.")
	previewCmd.Flags().Int64("seed", 0, "Seed for randomized answers (0 picks one).")
	previewCmd.Flags().String("survey", "", "Survey definition file or builtin:<name>.")
	previewCmd.Flags().String("mapping", "", "Field mapping JSON file.")

	bindFlag(previewCmd, "count", "submit.count")
	bindFlag(previewCmd, "randomize", "submit.randomize")
	bindFlag(previewCmd, "seed", "submit.seed")
	bindFlag(previewCmd, "survey", "form.survey_file")
	bindFlag(previewCmd, "mapping", "form.mapping_file")
	return previewCmd
}
