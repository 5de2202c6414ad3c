// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/raidcc/internal/config"
	"github.com/xkilldash9x/raidcc/internal/observability"
)

// configKeyAnnotation marks a flag with the config key it overrides.
const configKeyAnnotation = "raidcc/config-key"

// app carries the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	verbose bool
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "raidcc",
		Short: "raidcc starts RAID consistency checks through the Dell OMSA web console.",
		// Version is dynamically set at build time. See cmd/version.go.
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./raidcc.yaml)")
	flags.StringVar(&a.envFile, "env-file", "", "file of KEY=value lines loaded into the environment, e.g. creds.txt")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(newCheckCmd(a), newVersionCmd())
	return rootCmd
}

// Execute runs the root command and logs a failure before returning it.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		observability.GetLogger().Warn("Command aborted by signal.")
	} else {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// load resolves the configuration of the executing command in precedence
// order flags, environment, env file, config file, defaults, then starts
// the logger.
func (a *app) load(cmd *cobra.Command) error {
	if a.envFile != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", a.envFile, err)
		}
	}
	if err := a.initializeConfig(); err != nil {
		return err
	}
	if err := bindAnnotatedFlags(a.v, cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.LoggerCfg.Level = "debug"
	}
	a.cfg = cfg

	observability.Initialize(cfg.Logger(), zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	observability.GetLogger().Debug("Configuration loaded.",
		zap.String("version", Version), zap.String("config_file", a.v.ConfigFileUsed()))
	return nil
}

// initializeConfig reads in the config file and ENV variables if set.
func (a *app) initializeConfig() error {
	v := a.v
	config.SetDefaults(v)
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("raidcc")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("RAIDCC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || a.cfgFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return nil
}

// bindAnnotatedFlags binds every flag carrying configKeyAnnotation to its key.
// Unchanged flags do not override lower-precedence sources.
func bindAnnotatedFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if err != nil || len(keys) == 0 {
			return
		}
		if bindErr := v.BindPFlag(keys[0], f); bindErr != nil {
			err = fmt.Errorf("binding --%s: %w", f.Name, bindErr)
		}
	})
	return err
}

// annotate ties a flag to a config key.
func annotate(flags *pflag.FlagSet, name, key string) {
	if err := flags.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}
