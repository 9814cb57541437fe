// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package config loads command flags from a config file and IQL_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes the environment variable of every flag, IQL_MAX_CLAUSES for --max-clauses.
const EnvPrefix = "IQL"

// Load fills the flags of fs not set on the command line from the config file
// <name>.{yaml,json,toml} in the working directory, then from the environment.
// The environment wins over the file.
func Load(name string, fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetConfigName(name)
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return err
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return BindFlags(fs, v, EnvPrefix)
}

// BindFlags applies the values v holds to the flags of fs left unset.
// Dashes in flag names turn into underscores in environment variable names.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper, envPrefix string) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, "-") {
			env := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			err = multierr.Append(err, v.BindEnv(f.Name, env))
		}
		if f.Changed || !v.IsSet(f.Name) {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			err = multierr.Append(err, sv.Replace(v.GetStringSlice(f.Name)))
			return
		}
		err = multierr.Append(err, fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))))
	})
	return err
}
