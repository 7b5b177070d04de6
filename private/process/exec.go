// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package process wires the pieces every binary needs: flag binding from
// config structs, a YAML config file merged with flags and environment
// variables, the global logger, debug endpoints and signal-driven context
// cancellation.
package process

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/tagstore/private/cfgstruct"
)

var mon = monkit.Package()

// Error is the class of process setup errors.
var Error = errs.Class("process")

// DefaultCfgFilename is the name of the config file inside the config
// directory.
const DefaultCfgFilename = "config.yaml"

var (
	contextMtx sync.Mutex
	contexts   = map[*cobra.Command]context.Context{}

	vipersMtx sync.Mutex
	vipers    = map[*cobra.Command]*viper.Viper{}

	addGoFlags sync.Once
)

// Bind registers the flags of the config struct on the command.
func Bind(cmd *cobra.Command, config interface{}, opts ...cfgstruct.BindOpt) {
	cfgstruct.Bind(cmd.Flags(), config, opts...)
}

// Ctx returns the context of an executing command. The context is canceled
// on SIGINT and SIGTERM.
func Ctx(cmd *cobra.Command) context.Context {
	contextMtx.Lock()
	defer contextMtx.Unlock()

	ctx := contexts[cmd]
	if ctx == nil {
		ctx = context.Background()
		contexts[cmd] = ctx
	}
	return ctx
}

// Exec runs a root command. Before a subcommand's RunE fires, the config
// file, environment variables and defaults are folded into its flags, the
// global logger is configured and debug endpoints are started.
func Exec(cmd *cobra.Command) {
	addGoFlags.Do(func() {
		pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	})

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cleanup(cmd)

	if cmd.Execute() != nil {
		os.Exit(1)
	}
}

// Viper returns the viper instance of the command, created on first use. It
// binds the command's flags, the TAGSTORE_* environment and, outside of
// setup commands, the config file in --config-dir.
func Viper(cmd *cobra.Command) (*viper.Viper, error) {
	vipersMtx.Lock()
	defer vipersMtx.Unlock()

	if vip := vipers[cmd]; vip != nil {
		return vip, nil
	}

	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return nil, Error.Wrap(err)
	}
	vip.SetEnvPrefix("tagstore")
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vip.AutomaticEnv()

	if err := loadConfigFile(cmd, vip); err != nil {
		return nil, err
	}

	vipers[cmd] = vip
	return vip, nil
}

// loadConfigFile reads config.yaml from the configured directory. Setup
// commands skip the file: they are the ones creating it.
func loadConfigFile(cmd *cobra.Command, vip *viper.Viper) error {
	if cmd.Annotations["type"] == "setup" {
		return nil
	}
	cfgFlag := cmd.Flags().Lookup(cfgstruct.ConfDirName)
	if cfgFlag == nil || cfgFlag.Value.String() == "" {
		return nil
	}

	path := filepath.Join(os.ExpandEnv(cfgFlag.Value.String()), DefaultCfgFilename)
	if _, err := os.Stat(path); err != nil {
		// a missing config file is fine, flags and environment cover it
		return nil
	}

	vip.SetConfigFile(path)
	return Error.Wrap(vip.ReadInConfig())
}

func cleanup(cmd *cobra.Command) {
	for _, ccmd := range cmd.Commands() {
		cleanup(ccmd)
	}
	if cmd.Run != nil {
		panic("use RunE instead of Run")
	}
	if cmd.RunE == nil {
		return
	}

	internalRun := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		ctx := context.Background()
		defer mon.TaskNamed("root")(&ctx)(&err)

		vip, err := Viper(cmd)
		if err != nil {
			return err
		}
		unknownKeys, err := applySettings(cmd, vip)
		if err != nil {
			return err
		}

		logger, err := NewLogger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		defer zap.ReplaceGlobals(logger)()
		defer zap.RedirectStdLog(logger)()

		for _, key := range unknownKeys {
			logger.Warn("invalid configuration key", zap.String("key", key))
		}

		if err := initDebug(logger, monkit.Default); err != nil {
			logger.Error("failed to start debug endpoints", zap.Error(err))
		}

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(c)
		go func() {
			select {
			case <-c:
				cancel()
			case <-ctx.Done():
			}
		}()

		contextMtx.Lock()
		contexts[cmd] = ctx
		contextMtx.Unlock()
		defer func() {
			contextMtx.Lock()
			delete(contexts, cmd)
			contextMtx.Unlock()
		}()

		err = internalRun(cmd, args)
		if err != nil {
			logger.Error("command failed", zap.Error(err))
		}
		return err
	}
}

// applySettings folds the merged viper settings into flags the command line
// left untouched. Settings that match no flag are returned for logging once
// the logger exists.
func applySettings(cmd *cobra.Command, vip *viper.Viper) (unknownKeys []string, err error) {
	flat := map[string]interface{}{}
	flattenSettings("", vip.AllSettings(), flat)

	for key, value := range flat {
		f := cmd.Flags().Lookup(key)
		if f == nil {
			unknownKeys = append(unknownKeys, key)
			continue
		}
		if f.Changed {
			continue
		}
		if err := f.Value.Set(fmt.Sprint(value)); err != nil {
			return nil, Error.New("invalid value for %s: %v", key, err)
		}
	}

	sort.Strings(unknownKeys)
	return unknownKeys, nil
}

func flattenSettings(prefix string, settings map[string]interface{}, flat map[string]interface{}) {
	for key, value := range settings {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			flattenSettings(full, nested, flat)
		} else {
			flat[full] = value
		}
	}
}
