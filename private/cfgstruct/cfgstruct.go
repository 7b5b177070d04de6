// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package cfgstruct binds configuration structs to command line flags.
//
// Each exported field of a config struct becomes a flag named after the
// hyphenated field path (nested structs contribute a dot-separated prefix).
// Supported struct tags:
//
//	help           flag usage text
//	default        default value
//	devDefault     default when --defaults=dev
//	releaseDefault default when --defaults=release
//	internal       "true" skips the field
//	setup          "true" binds the field only in setup mode
//	hidden         "true" keeps the flag out of saved config files
//	user           "true" marks the flag as commonly user-edited
//
// Defaults may reference $CONFDIR, substituted via the ConfDir option.
package cfgstruct

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// ConfDirName is the name of the flag pointing at the configuration directory.
const ConfDirName = "config-dir"

type bindOptions struct {
	vars       map[string]string
	setupMode  bool
	useDev     bool
	defaultSet bool
}

// BindOpt structures options for binding.
type BindOpt func(*bindOptions)

// ConfDir sets a variable for resolving $CONFDIR in flag defaults.
func ConfDir(path string) BindOpt {
	val := filepath.Clean(os.ExpandEnv(path))
	return func(opts *bindOptions) { opts.vars["CONFDIR"] = val }
}

// SetupMode issues the bind in setup mode.
func SetupMode() BindOpt {
	return func(opts *bindOptions) { opts.setupMode = true }
}

// UseDevDefaults forces the bind to use development defaults.
func UseDevDefaults() BindOpt {
	return func(opts *bindOptions) { opts.useDev = true; opts.defaultSet = true }
}

// UseReleaseDefaults forces the bind to use release defaults.
func UseReleaseDefaults() BindOpt {
	return func(opts *bindOptions) { opts.useDev = false; opts.defaultSet = true }
}

// DefaultsType returns the type of defaults (dev/release) to use, reading
// the command line arguments directly because binding happens before flag
// parsing.
func DefaultsType() string {
	// define a flag so that the flag parsing system will be happy.
	defaults := strings.ToLower(findArgValue("defaults"))
	if defaults != "" {
		return defaults
	}
	if env := os.Getenv("TAGSTORE_DEFAULTS"); env != "" {
		return strings.ToLower(env)
	}
	return "release"
}

// DefaultsFlag registers the --defaults flag on the command and returns a
// BindOpt that applies the selected defaults.
func DefaultsFlag(cmd *cobra.Command) BindOpt {
	defaults := DefaultsType()
	cmd.PersistentFlags().String("defaults", defaults,
		"determines which set of configuration defaults to use. can either be 'dev' or 'release'")
	_ = cmd.PersistentFlags().SetAnnotation("defaults", "setup", []string{"true"})

	switch defaults {
	case "dev":
		return UseDevDefaults()
	case "release":
		return UseReleaseDefaults()
	default:
		panic(fmt.Sprintf("unsupported defaults value %q", defaults))
	}
}

// SetupFlag registers a persistent string flag outside of any config struct.
func SetupFlag(log *zap.Logger, cmd *cobra.Command, dest *string, name, value, usage string) {
	if foundValue := findArgValue(name); foundValue != "" {
		value = foundValue
	}
	cmd.PersistentFlags().StringVar(dest, name, value, usage)
	if cmd.PersistentFlags().SetAnnotation(name, "setup", []string{"true"}) != nil {
		log.Error("Failed to set 'setup' annotation", zap.String("Flag", name))
	}
}

// findArgValue scans os.Args for the given flag, so that values are
// available before pflag parsing runs.
func findArgValue(flagName string) string {
	flag := "--" + flagName
	for i, arg := range os.Args {
		if arg == flag && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, flag+"=") {
			return arg[len(flag)+1:]
		}
	}
	return ""
}

// Bind sets flags on a FlagSet that match the configuration struct.
func Bind(flags *pflag.FlagSet, config interface{}, opts ...BindOpt) {
	options := bindOptions{vars: map[string]string{}}
	for _, opt := range opts {
		opt(&options)
	}

	ptr := reflect.ValueOf(config)
	if ptr.Kind() != reflect.Ptr {
		panic(fmt.Sprintf("invalid config type: %T, expected pointer to struct", config))
	}
	val := ptr.Elem()
	if val.Kind() != reflect.Struct {
		panic(fmt.Sprintf("invalid config type: %T, expected pointer to struct", config))
	}

	bindStruct(flags, "", val, &options)
}

func bindStruct(flags *pflag.FlagSet, prefix string, val reflect.Value, options *bindOptions) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if field.Tag.Get("internal") == "true" {
			continue
		}
		if field.Tag.Get("setup") == "true" && !options.setupMode {
			continue
		}

		flagname := hyphenate(field.Name)
		if prefix != "" {
			flagname = prefix + "." + flagname
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			bindStruct(flags, flagname, fieldVal, options)
			continue
		}

		help := field.Tag.Get("help")
		def := fieldDefault(field, options)
		def = expandVars(def, options.vars)

		if !fieldVal.CanAddr() {
			panic(fmt.Sprintf("cannot address field %s", field.Name))
		}
		addr := fieldVal.Addr().Interface()

		switch value := addr.(type) {
		case *time.Duration:
			d, err := time.ParseDuration(def)
			if def != "" && err != nil {
				panic(invalidDefault(flagname, def, err))
			}
			flags.DurationVar(value, flagname, d, help)
		case *string:
			flags.StringVar(value, flagname, def, help)
		case *bool:
			b, err := parseBool(def)
			if err != nil {
				panic(invalidDefault(flagname, def, err))
			}
			flags.BoolVar(value, flagname, b, help)
		case *int:
			n, err := parseInt(def)
			if err != nil {
				panic(invalidDefault(flagname, def, err))
			}
			flags.IntVar(value, flagname, int(n), help)
		case *int64:
			n, err := parseInt(def)
			if err != nil {
				panic(invalidDefault(flagname, def, err))
			}
			flags.Int64Var(value, flagname, n, help)
		case *uint64:
			var n uint64
			var err error
			if def != "" {
				n, err = strconv.ParseUint(def, 10, 64)
				if err != nil {
					panic(invalidDefault(flagname, def, err))
				}
			}
			flags.Uint64Var(value, flagname, n, help)
		case *float64:
			var f float64
			var err error
			if def != "" {
				f, err = strconv.ParseFloat(def, 64)
				if err != nil {
					panic(invalidDefault(flagname, def, err))
				}
			}
			flags.Float64Var(value, flagname, f, help)
		default:
			panic(fmt.Sprintf("invalid field type %s for flag %s", field.Type, flagname))
		}

		for _, annotation := range []string{"hidden", "user", "setup"} {
			if field.Tag.Get(annotation) == "true" {
				_ = flags.SetAnnotation(flagname, annotation, []string{"true"})
			}
		}
	}
}

func fieldDefault(field reflect.StructField, options *bindOptions) string {
	if options.defaultSet {
		if options.useDev {
			if dev, ok := field.Tag.Lookup("devDefault"); ok {
				return dev
			}
		} else {
			if rel, ok := field.Tag.Lookup("releaseDefault"); ok {
				return rel
			}
		}
	}
	return field.Tag.Get("default")
}

func expandVars(s string, vars map[string]string) string {
	for name, val := range vars {
		s = strings.ReplaceAll(s, "$"+name, val)
	}
	return s
}

func invalidDefault(flagname, def string, err error) string {
	return fmt.Sprintf("invalid default %q for flag %s: %v", def, flagname, err)
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func parseInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// hyphenate converts a camel-cased field name to a hyphen-separated flag
// name, keeping acronyms together: "ExpireTimeout" becomes "expire-timeout"
// and "DatabaseURL" becomes "database-url".
func hyphenate(name string) string {
	runes := []rune(name)
	var out []rune
	for i, r := range runes {
		if 'A' <= r && r <= 'Z' {
			prevLower := i > 0 && isLower(runes[i-1])
			nextLower := i+1 < len(runes) && isLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				out = append(out, '-')
			}
			r = r - 'A' + 'a'
		}
		out = append(out, r)
	}
	return string(out)
}

func isLower(r rune) bool { return 'a' <= r && r <= 'z' || '0' <= r && r <= '9' }
