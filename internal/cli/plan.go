package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-chunkscribe/internal/audio"
	"github.com/alnah/go-chunkscribe/internal/format"
	"github.com/alnah/go-chunkscribe/internal/logging"
	"github.com/alnah/go-chunkscribe/internal/pipeline"
)

// PlanCmd creates the plan command.
// The env parameter provides injectable dependencies for testing.
func PlanCmd(env *Env) *cobra.Command {
	var opts splitOptions

	cmd := &cobra.Command{
		Use:   "plan <audio-file>",
		Short: "Show where an audio file would be cut, without transcribing",
		Long: `Probe an audio file, detect its silences and print the cut points and
chunk intervals transcribe would use. Nothing is extracted or uploaded.`,
		Example: `  chunkscribe plan lecture.mp3
  chunkscribe plan lecture.mp3 --chunks 12 --threshold -35dB`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), env, args[0], opts, cmd.Flags().Changed)
		},
	}

	registerSplitFlags(cmd, &opts)
	return cmd
}

// runPlan validates like transcribe, minus engine and output checks.
func runPlan(ctx context.Context, env *Env, inputPath string, opts splitOptions, changed func(string) bool) error {
	if err := checkInput(inputPath); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return err
	}
	opts = mergeSplitConfig(opts, cfg, changed)

	ffmpegPath, ffprobePath, err := resolveBinaries(ctx, env)
	if err != nil {
		return err
	}

	p := pipeline.New(
		env.ChunkerFactory.NewChunkerFactory(ffmpegPath, ffprobePath, env.Metrics),
		nil,
		pipeline.WithLogger(logging.Component(env.Logger, "pipeline")),
		pipeline.WithAvailableCPUs(env.CPUs))

	plan, err := p.Plan(ctx, opts.params(inputPath))
	if err != nil {
		return err
	}
	return printPlan(env.Stdout, plan)
}

// printPlan writes a human-readable plan.
func printPlan(w io.Writer, plan audio.Plan) error {
	var b strings.Builder

	fmt.Fprintf(&b, "source:   %s\n", plan.Source)
	fmt.Fprintf(&b, "duration: %s (%.3fs)\n", format.Duration(format.Seconds(plan.Duration)), plan.Duration)
	fmt.Fprintf(&b, "silences: %d\n", len(plan.Silences))
	fmt.Fprintf(&b, "target:   %d\n", plan.Target)

	cuts := make([]string, len(plan.Cuts))
	for i, c := range plan.Cuts {
		cuts[i] = strconv.FormatFloat(c, 'f', 3, 64)
	}
	fmt.Fprintf(&b, "cuts:     %s\n", strings.Join(cuts, " "))

	for i, iv := range plan.Intervals() {
		c := audio.Chunk{Index: i, Start: iv.Start, End: iv.End}
		fmt.Fprintf(&b, "%s (%.3fs)\n", c, iv.End-iv.Start)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
