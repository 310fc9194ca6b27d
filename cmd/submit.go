package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/formpilot/internal/browser"
	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/form"
	"github.com/xkilldash9x/formpilot/internal/humanoid"
	"github.com/xkilldash9x/formpilot/internal/observability"
	"github.com/xkilldash9x/formpilot/internal/report"
	"github.com/xkilldash9x/formpilot/internal/store"
	"github.com/xkilldash9x/formpilot/internal/submitter"
)

// newSubmitCmd creates and configures the `submit` command.
func newSubmitCmd() *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submits the form the requested number of times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}

			inputs, err := loadInputs(cfg)
			if err != nil {
				return err
			}

			components, err := initializeSubmitComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize submit components: %w", err)
			}
			defer components.Shutdown()

			return runSubmissions(cmd, cfg, inputs, components, logger)
		},
	}

	submitCmd.Flags().IntP("count", "n", 1, "Number of submissions to make.")
	submitCmd.Flags().Bool("randomize", false, "Pick answers at random from each field's pool.")
	submitCmd.Flags().Int64("seed", 0, "Seed for randomized answers and pauses (0 picks one).")
	submitCmd.Flags().String("mode", config.ModePrefill, "How answers reach the form: 'prefill' or 'direct'.")
	submitCmd.Flags().Bool("headless", false, "Run the browser without a window.")
	submitCmd.Flags().StringP("output", "o", "", "Write the run report to this file (.json for JSON, .xml for JUnit, text otherwise).")
	submitCmd.Flags().Int("pages", 0, "Number of form pages to walk (0 uses the survey's page count).")
	submitCmd.Flags().String("survey", "", "Survey definition file or builtin:<name>.")
	submitCmd.Flags().String("mapping", "", "Field mapping JSON file.")

	bindFlag(submitCmd, "count", "submit.count")
	bindFlag(submitCmd, "randomize", "submit.randomize")
	bindFlag(submitCmd, "seed", "submit.seed")
	bindFlag(submitCmd, "mode", "form.mode")
	bindFlag(submitCmd, "headless", "browser.headless")
	bindFlag(submitCmd, "output", "artifacts.report")
	bindFlag(submitCmd, "pages", "form.pages")
	bindFlag(submitCmd, "survey", "form.survey_file")
	bindFlag(submitCmd, "mapping", "form.mapping_file")
	return submitCmd
}

// inputs are the survey and mapping a run works from.
type inputs struct {
	survey  *form.Survey
	mapping form.Mapping
}

// loadInputs reads the survey and, in prefill mode, the mapping. Mapping
// gaps are reported here, before a browser is started.
func loadInputs(cfg config.Interface) (*inputs, error) {
	survey, err := form.LoadSurvey(cfg.Form().SurveyFile)
	if err != nil {
		return nil, err
	}
	in := &inputs{survey: survey}
	if cfg.Form().Mode != config.ModePrefill {
		return in, nil
	}

	mapping, err := form.LoadMapping(cfg.Form().MappingFile)
	if err != nil {
		return nil, err
	}
	if err := mapping.Validate(survey.Fields); err != nil {
		return nil, err
	}
	in.mapping = mapping
	return in, nil
}

// submitComponents holds initialized services.
type submitComponents struct {
	Manager *browser.Manager
	Session *browser.Session
	Store   *store.Store
	DBPool  *pgxpool.Pool
	Pacer   *humanoid.Pacer
	Rand    *rand.Rand
}

// Shutdown closes all components.
func (sc *submitComponents) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if sc.Session != nil {
		_ = sc.Session.Close()
	}
	if sc.Manager != nil {
		if err := sc.Manager.Shutdown(shutdownCtx); err != nil {
			observability.GetLogger().Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}
	if sc.DBPool != nil {
		sc.DBPool.Close()
	}
}

// initializeSubmitComponents launches the browser and, when configured,
// connects the attempt store. The two start in parallel.
func initializeSubmitComponents(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*submitComponents, error) {
	components := &submitComponents{}

	seed := cfg.Submit().Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Debug("Random source seeded.", zap.Int64("seed", seed))
	components.Rand = rand.New(rand.NewSource(seed))
	components.Pacer = humanoid.NewPacer(cfg.Submit(), rand.New(rand.NewSource(seed+1)), logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		manager, err := browser.NewManager(ctx, logger, cfg.Browser())
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		components.Manager = manager
		return nil
	})

	if url := cfg.Database().URL; url != "" {
		g.Go(func() error {
			st, pool, err := store.Connect(gctx, url, logger)
			if err != nil {
				return fmt.Errorf("failed to connect to attempt store: %w", err)
			}
			components.DBPool = pool
			if err := st.Migrate(gctx); err != nil {
				return fmt.Errorf("failed to prepare attempt store: %w", err)
			}
			components.Store = st
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return components, err
	}

	nc := cfg.Navigation()
	session, err := components.Manager.NewSession(ctx, browser.SessionOptions{
		NavigationTimeout: nc.NavigationTimeout,
		ScrollPause:       nc.ScrollPause,
		ClickPause:        nc.ClickPause,
		Pauser:            components.Pacer,
	})
	if err != nil {
		return components, fmt.Errorf("failed to open browser session: %w", err)
	}
	components.Session = session
	return components, nil
}

// runSubmissions drives the loop and writes the outcome. Per-attempt
// failures never make the command fail.
func runSubmissions(cmd *cobra.Command, cfg config.Interface, in *inputs, components *submitComponents, logger *zap.Logger) error {
	opts := submitter.Options{
		Page:    components.Session,
		Survey:  in.survey,
		Mapping: in.mapping,
		Rand:    components.Rand,
		Pacer:   components.Pacer,
		Logger:  logger,
	}
	if components.Store != nil {
		opts.Recorder = components.Store
	}

	s, err := submitter.New(cfg, opts)
	if err != nil {
		return err
	}

	run := s.Run(cmd.Context())
	return writeRun(cmd, cfg.Artifacts().Report, run, logger)
}

// writeRun prints the summary and, when path is set, writes the report file.
func writeRun(cmd *cobra.Command, path string, run *report.Run, logger *zap.Logger) error {
	fmt.Fprint(cmd.OutOrStdout(), "\n"+report.Summary(run))
	if path == "" {
		return nil
	}

	reporter, err := report.New(report.FormatFor(path), path)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	defer func() {
		if err := reporter.Close(); err != nil {
			logger.Error("Failed to close reporter", zap.Error(err))
		}
	}()
	if err := reporter.Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	logger.Info("Report written.", zap.String("path", path))
	return nil
}
