package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chunkscribe/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/chunkscribe/config (or under
$XDG_CONFIG_HOME). Each key falls back to CHUNKSCRIBE_<KEY> in the
environment; command-line flags override both.

Supported settings:
` + configKeysHelp(),
		Example: `  chunkscribe config set workers 4
  chunkscribe config set output-dir ~/transcripts
  chunkscribe config get silence-threshold
  chunkscribe config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configKeysHelp lists every key with its environment variable.
func configKeysHelp() string {
	var b strings.Builder
	for _, key := range config.Keys {
		fmt.Fprintf(&b, "  %-18s (env: %s)\n", key, config.EnvName(key))
	}
	return b.String()
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Example: `  chunkscribe config set engine local
  chunkscribe config set engine-command "whisper-json --model small"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value from the config file, else from the environment, or
nothing if neither is set.`,
		Example: `  chunkscribe config get output-dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, args[0])
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all configuration values",
		Example: `  chunkscribe config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env)
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if err := config.Validate(key, value); err != nil {
		return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.Keys, ", "))
	}

	// Store the expanded path so the value does not depend on who reads it.
	if key == config.KeyOutputDir {
		value = config.ExpandPath(value)
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	env.Logger.Info().Str("key", key).Str("value", value).Msg("configuration saved")
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, key string) error {
	if !config.IsKey(key) {
		return fmt.Errorf("%w %q (valid keys: %s)", config.ErrUnknownKey, key, strings.Join(config.Keys, ", "))
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		value = env.Getenv(config.EnvName(key))
	}

	if value != "" {
		_, _ = fmt.Fprintln(env.Stdout, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
// Keys are printed in a fixed order; environment values are marked.
func runConfigList(env *Env) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	printed := 0
	for _, key := range config.Keys {
		value, ok := data[key]
		suffix := ""
		if !ok || value == "" {
			value = env.Getenv(config.EnvName(key))
			suffix = " (from env)"
		}
		if value == "" {
			continue
		}
		_, _ = fmt.Fprintf(env.Stdout, "%s=%s%s\n", key, value, suffix)
		printed++
	}

	if printed == 0 {
		_, _ = fmt.Fprintln(env.Stdout, "No configuration set.")
		_, _ = fmt.Fprintln(env.Stdout, "\nAvailable settings:")
		_, _ = fmt.Fprint(env.Stdout, configKeysHelp())
	}
	return nil
}
