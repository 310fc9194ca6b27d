// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot/internal/config"
	"github.com/xkilldash9x/formpilot/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

const (
	// viperKeyAnnotation names the configuration key a flag overrides.
	viperKeyAnnotation = "formpilot_viper_key"
	// lenientAnnotation marks commands that run without a valid form config.
	lenientAnnotation = "formpilot_lenient_config"

	envPrefix  = "FORMPILOT"
	dotEnvFile = ".env"
)

// NewRootCommand builds a fresh command tree. Every call gets its own viper
// instance, so flags and config never leak between executions.
func NewRootCommand() *cobra.Command {
	var cfgFile string
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "formpilot",
		Short: "formpilot submits multi-page web surveys through a real browser.",
		Long: `formpilot fills a paged survey form with fixed or randomized answers,
walks its pages, submits it and checks that the response was recorded.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formpilot"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			var (
				cfg *config.Config
				err error
			)
			if isLenient(cmd) {
				cfg, err = config.LoadFromViper(v)
			} else {
				cfg, err = config.NewConfigFromViper(v)
			}
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "formpilot"})
				return fmt.Errorf("failed to load config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting formpilot", zap.String("version", Version), zap.String("command", cmd.Name()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "formpilot version %s\n" .Version}}`)

	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with the given signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			observability.GetLogger().Warn("Command cancelled.")
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	observability.Sync()
	return err
}

// initializeConfig layers the sources: flags over environment over the
// config file over defaults. A .env file in the working directory feeds the
// environment without overriding variables that are already set.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)

	if _, err := config.LoadDotEnv(dotEnvFile); err != nil {
		return err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return bindFlags(cmd, v)
}

// bindFlags binds every flag annotated with a configuration key.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[viperKeyAnnotation]
		if bindErr != nil || len(keys) == 0 {
			return
		}
		bindErr = v.BindPFlag(keys[0], f)
	})
	return bindErr
}

// bindFlag ties flag name of cmd to a configuration key.
func bindFlag(cmd *cobra.Command, name, key string) {
	if err := cmd.Flags().SetAnnotation(name, viperKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("cannot bind unknown flag %q", name))
	}
}

func lenient(cmd *cobra.Command) {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[lenientAnnotation] = "true"
}

func isLenient(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[lenientAnnotation] == "true" {
			return true
		}
	}
	return false
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in command context")
	}
	return cfg, nil
}
