/*
   Plus4Drive - Commodore disk & tape media emulator
   Copyright (c) 2022, Alexander Vollschwitz

   This file is part of Plus4Drive.

   Plus4Drive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   Plus4Drive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with Plus4Drive. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"
)

const envPrefix = "PLUS4DRIVE"

const runnerHelpEpilogue = `- Settings can also be made via environment variables, e.g. the --log-level
  option can be set as PLUS4DRIVE_LOG_LEVEL.

- Settings can also be placed in a config file given with --config, using the
  option name with dots instead of dashes, e.g. tape.sample-rate for
  --tape-sample-rate. Formats are YAML, TOML, JSON, and INI.

`

/*
	NewRunner creates the runner for a command. use, short, and long are the
	cobra command texts. helpIntro and helpEpilogue are placed before and after
	the flag list in the help output. exec is called when the command runs.
*/
func NewRunner(use, short, long, helpIntro, helpEpilogue string,
	exec func() error) *Runner {

	r := &Runner{
		viper:    viper.New(),
		settings: map[string]interface{}{},
		required: map[string]bool{},
	}

	r.cmd = &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := r.ParseSettings(); err != nil {
				return err
			}
			return exec()
		},
	}

	r.cmd.SetUsageTemplate(
		strings.Replace(r.cmd.UsageTemplate(), "Flags:",
			helpIntro+"Flags:", 1) + "\n" + helpEpilogue)

	r.viper.SetEnvPrefix(envPrefix)
	r.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	return r
}

// Runner is the base for all commands. It ties command line flags,
// environment variables, and config file settings together.
type Runner struct {
	cmd      *cobra.Command
	viper    *viper.Viper
	settings map[string]interface{}
	required map[string]bool
	//
	Address   string
	LogLevel  string
	LogFormat string
	Config    string
}

//
func (r *Runner) Command() *cobra.Command {
	return r.cmd
}

/*
	AddSetting adds a setting to this runner. ref points to the field the
	setting is stored in, which determines the setting's type. The key name
	becomes the flag --{name} with dots replaced by dashes, and the env var
	PLUS4DRIVE_{NAME}, unless env is given. short is the single letter flag, if
	any.
*/
func (r *Runner) AddSetting(ref interface{}, name, short, env string,
	def interface{}, usage string, required bool) {

	flag := strings.ReplaceAll(name, ".", "-")
	fs := r.flags()

	switch v := ref.(type) {
	case *string:
		d, _ := def.(string)
		fs.StringP(flag, short, d, usage)
	case *int:
		d, _ := def.(int)
		fs.IntP(flag, short, d, usage)
	case *bool:
		d, _ := def.(bool)
		fs.BoolP(flag, short, d, usage)
	case *float64:
		d, _ := def.(float64)
		fs.Float64P(flag, short, d, usage)
	default:
		panic(fmt.Sprintf("unsupported setting type %T for %s", v, name))
	}

	r.viper.BindPFlag(name, fs.Lookup(flag))
	if env != "" {
		r.viper.BindEnv(name, env)
	} else {
		r.viper.BindEnv(name)
	}

	r.settings[name] = ref
	if required {
		r.required[name] = true
	}
}

// AddBaseSettings adds the settings every command talking to the daemon
// needs.
func (r *Runner) AddBaseSettings() {
	r.AddSetting(&r.Address, "address", "a", "", ":8989",
		"listen address and port of daemon's API server", false)
	r.AddLogSettings()
}

//
func (r *Runner) AddLogSettings() {
	r.AddSetting(&r.LogLevel, "log-level", "", "", "info",
		"log level: trace, debug, info, warn, error", false)
	r.AddSetting(&r.LogFormat, "log-format", "", "", "text",
		"log format: text or json", false)
	r.AddSetting(&r.Config, "config", "", "", "",
		"config file", false)
}

// ParseSettings resolves all settings, with precedence flag, environment,
// config file, default, and sets up logging.
func (r *Runner) ParseSettings() error {

	if cfg := r.viper.GetString("config"); cfg != "" {
		r.viper.SetConfigFile(cfg)
		if err := r.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read config file '%s': %v", cfg, err)
		}
	}

	for name, ref := range r.settings {
		switch v := ref.(type) {
		case *string:
			*v = r.viper.GetString(name)
		case *int:
			*v = r.viper.GetInt(name)
		case *bool:
			*v = r.viper.GetBool(name)
		case *float64:
			*v = r.viper.GetFloat64(name)
		}
	}

	for name := range r.required {
		if !r.viper.IsSet(name) {
			return fmt.Errorf("required setting '%s' missing",
				strings.ReplaceAll(name, ".", "-"))
		}
	}

	if _, ok := r.settings["log-level"]; ok {
		return setupLogging(
			r.viper.GetString("log-level"), r.viper.GetString("log-format"))
	}
	return nil
}

//
func setupLogging(level, format string) error {

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format: %s", format)
	}

	log.SetOutput(os.Stderr)
	return nil
}

//
func (r *Runner) apiCall(method, path string, json bool,
	body io.Reader) (io.ReadCloser, error) {

	addr := r.Address
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	req, err := http.NewRequest(method, addr+path, body)
	if err != nil {
		return nil, err
	}
	if json {
		req.Header.Set("Accept", "application/json")
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	return resp.Body, nil
}

//
func (r *Runner) flags() *pflag.FlagSet {
	return r.cmd.Flags()
}
