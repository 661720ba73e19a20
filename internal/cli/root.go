package cli

import (
	"github.com/spf13/cobra"

	"github.com/alnah/go-chunkscribe/internal/config"
	"github.com/alnah/go-chunkscribe/internal/logging"
)

// logFlags are the persistent logging flags of the root command.
type logFlags struct {
	level  string
	format string
	file   string
}

// RootCmd creates the chunkscribe root command with every subcommand.
func RootCmd(env *Env, version string) *cobra.Command {
	var lf logFlags

	root := &cobra.Command{
		Use:   "chunkscribe",
		Short: "Transcribe long audio in parallel, cut at silences",
		Long: `chunkscribe cuts a long recording at detected silences into roughly
equal chunks, transcribes them in parallel and reassembles the text in
order. Temporary chunk files are removed on every exit path.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(env, lf, cmd.Flags().Changed)
		},
	}

	root.PersistentFlags().StringVar(&lf.level, "log-level", "info", "Log level: trace, debug, info, warn, error, disabled")
	root.PersistentFlags().StringVar(&lf.format, "log-format", logging.FormatConsole, "Log format on stderr: console, json")
	root.PersistentFlags().StringVar(&lf.file, "log-file", "", "Also write JSON logs to this file (rotated)")

	root.AddCommand(TranscribeCmd(env))
	root.AddCommand(PlanCmd(env))
	root.AddCommand(ConfigCmd(env))

	return root
}

// setupLogging builds env.Logger from the flags, falling back to the
// configured level and file. A broken config file must not prevent
// "config set" from repairing it, so load errors only produce a warning.
func setupLogging(env *Env, lf logFlags, changed func(string) bool) error {
	cfg, cfgErr := env.ConfigLoader.Load()

	opts := logging.Options{Level: lf.level, Format: lf.format, File: lf.file}
	if !changed("log-level") && cfg.LogLevel != "" {
		opts.Level = cfg.LogLevel
	}
	if !changed("log-file") && cfg.LogFile != "" {
		opts.File = config.ExpandPath(cfg.LogFile)
	}

	logger, closer, err := logging.New(env.Stderr, opts)
	if err != nil {
		return err
	}
	_ = env.Close()
	env.Logger = logger
	env.closer = closer

	if cfgErr != nil {
		env.Logger.Warn().Err(cfgErr).Msg("ignoring unreadable configuration for logging")
	}
	return nil
}
