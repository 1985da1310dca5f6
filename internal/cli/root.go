// Package cli implements engagectl, the operator command line over the same
// stores the HTTP server uses.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Redshadow31/tenf-v2-sub004/internal/app/bootstrap"
	"github.com/Redshadow31/tenf-v2-sub004/internal/app/services"
	"github.com/Redshadow31/tenf-v2-sub004/internal/config"
	"github.com/Redshadow31/tenf-v2-sub004/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BuildFunc assembles the services a command runs against.
type BuildFunc func(ctx context.Context, cfg *config.AppConfig, loggers *logger.Logger) (*bootstrap.App, error)

type runner struct {
	build   BuildFunc
	out     io.Writer
	v       *viper.Viper
	cfgFile string
	actor   string
}

// NewRootCommand returns the engagectl command tree. A nil build uses
// bootstrap.Build.
func NewRootCommand(build BuildFunc, out io.Writer) *cobra.Command {
	if build == nil {
		build = bootstrap.Build
	}
	if out == nil {
		out = os.Stdout
	}
	r := &runner{build: build, out: out, v: viper.New()}

	root := &cobra.Command{
		Use:   "engagectl",
		Short: "Operate monthly member evaluations from the command line",
		Long: `engagectl works against the configured member directory and evaluation store:
- imports chat activity exports into section B
- reports and merges duplicate member identities
- reconciles legacy blob-store months into the relational store
- rates raw activity counters with the configured tier tables`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return r.initConfig()
		},
	}
	root.PersistentFlags().StringVar(&r.cfgFile, "config", "", "YAML config file whose keys mirror the environment variables")
	root.PersistentFlags().StringVar(&r.actor, "actor", "", "operator recorded on writes (default $USER)")
	root.PersistentFlags().String("log-level", "OFF", "log level (DEBUG, INFO, WARN, ERROR or OFF)")
	_ = r.v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(
		r.importCommand(),
		r.duplicatesCommand(),
		r.mergeCommand(),
		r.reconcileCommand(false),
		r.reconcileCommand(true),
		r.scoreCommand(),
	)
	return root
}

func (r *runner) initConfig() error {
	if r.cfgFile != "" {
		r.v.SetConfigFile(r.cfgFile)
		if err := r.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", r.cfgFile, err)
		}
	}
	r.v.AutomaticEnv()

	// config.Load reads the process environment, so file values are exported
	// for keys the environment does not already set.
	for _, key := range r.v.AllKeys() {
		env := strings.ToUpper(key)
		if _, set := os.LookupEnv(env); set {
			continue
		}
		if err := os.Setenv(env, r.v.GetString(key)); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) app(ctx context.Context) (*bootstrap.App, error) {
	cfg := config.Load()
	return r.build(ctx, cfg, logger.New(r.v.GetString("log_level")))
}

func (r *runner) context(cmd *cobra.Command) context.Context {
	actor := r.actor
	if actor == "" {
		actor = os.Getenv("USER")
	}
	return services.WithActor(cmd.Context(), actor)
}

func (r *runner) print(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
