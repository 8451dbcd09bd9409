// Package cmd implements the mtzip command line.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "MTZIP"
	configName = ".mtzip"
)

// app carries state shared by the subcommands.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

// NewRootCmd returns the mtzip command tree. Each call returns an
// independent tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "mtzip",
		Short: "Build ZIP archives with parallel compression",
		Long: `mtzip builds PKZIP-compatible archives, deflating entries on all available
cores while keeping the archive layout in the order entries were given.

Flags can also be set through MTZIP_* environment variables or a YAML
config file (default ~/.mtzip.yaml).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().String("config", "", "config file (default ~/.mtzip.yaml)")
	root.PersistentFlags().BoolP("verbose", "v", false, "log progress to stderr")

	root.AddCommand(newCreateCmd(a), newVersionCmd())
	return root
}

// init binds flags, environment and config file, then sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if err := a.readConfig(); err != nil {
		return err
	}

	level := slog.LevelWarn
	if a.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) readConfig() error {
	if file := a.v.GetString("config"); file != "" {
		path, err := homedir.Expand(file)
		if err != nil {
			return fmt.Errorf("expand config path: %w", err)
		}
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return nil //nolint:nilerr // the default config file is optional
	}
	a.v.AddConfigPath(home)
	a.v.SetConfigName(configName)
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
