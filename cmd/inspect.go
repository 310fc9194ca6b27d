package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/form"
	"github.com/xkilldash9x/formpilot/internal/inspect"
	"github.com/xkilldash9x/formpilot/internal/observability"
)

// newInspectClient builds the client that fetches remote form pages.
// Tests swap it for an httptest client.
var newInspectClient = func(cfg config.BrowserConfig) *http.Client {
	return inspect.NewClient(30*time.Second, cfg.IgnoreTLSErrors)
}

// newInspectCmd creates the `inspect` command.
func newInspectCmd() *cobra.Command {
	var (
		draftPath string
		surveyRef string
	)

	inspectCmd := &cobra.Command{
		Use:   "inspect <url|file>",
		Short: "Lists the questions and radio options of a form page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			sel := inspect.DefaultSelectors
			if fc := cfg.Form(); fc.QuestionSelector != "" && fc.OptionSelector != "" {
				sel = inspect.Selectors{Question: fc.QuestionSelector, Option: fc.OptionSelector}
			}

			outline, err := inspect.Load(ctx, newInspectClient(cfg.Browser()), args[0], cfg.Browser().UserAgent, sel)
			if err != nil {
				return err
			}
			if err := inspect.Render(cmd.OutOrStdout(), outline); err != nil {
				return err
			}

			if draftPath == "" {
				return nil
			}
			if surveyRef == "" {
				surveyRef = cfg.Form().SurveyFile
			}
			survey, err := form.LoadSurvey(surveyRef)
			if err != nil {
				return err
			}
			mapping := inspect.DraftMapping(survey.Fields, outline)
			if err := writeMappingFile(draftPath, mapping); err != nil {
				return err
			}
			logger.Info("Draft mapping written.",
				zap.String("path", draftPath),
				zap.Int("mapped", len(mapping)),
				zap.Int("fields", len(survey.Fields)),
			)
			if err := mapping.Validate(survey.Fields); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nDraft mapping needs editing: %v\n", err)
			}
			return nil
		},
	}
	lenient(inspectCmd)

	inspectCmd.Flags().StringVar(&draftPath, "draft-mapping", "", "Write a draft field mapping pairing survey fields with questions in page order.")
	inspectCmd.Flags().StringVar(&surveyRef, "survey", "", "Survey used for --draft-mapping (file or builtin:<name>).")
	return inspectCmd
}

func writeMappingFile(path string, m form.Mapping) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create mapping file: %w", err)
	}
	if err := m.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("could not write mapping file: %w", err)
	}
	return f.Close()
}
