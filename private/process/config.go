// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/zeebo/errs"
)

// SaveConfigWithAllDefaults writes the flags as a YAML config file. Values
// still at their default are written as comments; changed values and
// overrides are written uncommented. Setup-only and hidden flags are
// skipped.
func SaveConfigWithAllDefaults(flags *pflag.FlagSet, outfile string, overrides map[string]interface{}) error {
	var sb strings.Builder

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" ||
			readBoolAnnotation(f, "setup") ||
			readBoolAnnotation(f, "hidden") {
			return
		}

		value := f.Value.String()
		changed := f.Changed
		if override, ok := overrides[f.Name]; ok {
			value = fmt.Sprint(override)
			changed = true
		}

		if f.Usage != "" {
			sb.WriteString("# ")
			sb.WriteString(f.Usage)
			sb.WriteString("\n")
		}
		if !changed {
			sb.WriteString("# ")
		}
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(yamlScalar(value))
		sb.WriteString("\n\n")
	})

	return atomicWrite(outfile, 0600, []byte(sb.String()))
}

// yamlScalar quotes values that would not survive a round trip as a plain
// YAML scalar.
func yamlScalar(value string) string {
	if value == "" {
		return `""`
	}
	if strings.ContainsAny(value, "#:\"'\n") ||
		value != strings.TrimSpace(value) {
		return strconv.Quote(value)
	}
	return value
}

func readBoolAnnotation(f *pflag.Flag, key string) bool {
	annotation := f.Annotations[key]
	return len(annotation) > 0 && annotation[0] == "true"
}

// atomicWrite writes data to outfile through a rename so a crash cannot
// leave a half-written config behind.
func atomicWrite(outfile string, mode os.FileMode, data []byte) (err error) {
	fh, err := os.CreateTemp(filepath.Dir(outfile), filepath.Base(outfile))
	if err != nil {
		return errs.Wrap(err)
	}
	name := fh.Name()
	defer func() {
		if err != nil {
			err = errs.Combine(err, os.Remove(name))
		}
	}()

	err = func() (err error) {
		defer func() { err = errs.Combine(err, fh.Close()) }()
		if _, err := fh.Write(data); err != nil {
			return errs.Wrap(err)
		}
		return errs.Wrap(fh.Sync())
	}()
	if err != nil {
		return err
	}

	if err := os.Chmod(name, mode); err != nil {
		return errs.Wrap(err)
	}
	return errs.Wrap(os.Rename(name, outfile))
}
