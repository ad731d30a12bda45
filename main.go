package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ZacxDev/shrinkvid/pkg/videoprocessor"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "shrinkvid",
		Short: "Shrink videos to fit an upload size limit",
		Long: `shrinkvid re-encodes videos so each one fits under a target file size.
It budgets bitrate from the target size and duration, then tries progressively
lower resolutions until the output fits.

Examples:
  # Fit two clips under 10 MB each
  shrinkvid compress -o ./out clip1.mp4 clip2.mov

  # Fit a clip under Discord's attachment limit
  shrinkvid compress -o ./out -p discord clip.mp4

  # Show what would be tried without encoding
  shrinkvid probe --target 8MiB clip.mp4`,
		SilenceUsage: true,
	}

	compressCmd = &cobra.Command{
		Use:   "compress [flags] FILE...",
		Short: "Compress videos to a target size",
		Long: fmt.Sprintf(`Compress each video to at most the target size. Outputs are written as
compressed_<name> in the output folder.

The size limit comes from, in order: --target, --preset, --target-mb, the
config file, and finally 10 MB.

Presets:
%s
Example:
  shrinkvid compress -o ./out -s 25 holiday.mov`,
			formatPresets()),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vp, err := videoprocessor.New(optionsFromFlags(cmd))
			if err != nil {
				return err
			}
			_, err = vp.Compress(cmd.Context(), args)
			return err
		},
	}

	probeCmd = &cobra.Command{
		Use:   "probe [flags] FILE...",
		Short: "Show the bitrate plan and resolution ladder without encoding",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vp, err := videoprocessor.New(optionsFromFlags(cmd))
			if err != nil {
				return err
			}
			_, err = vp.Probe(cmd.Context(), args)
			return err
		},
	}

	presetsCmd = &cobra.Command{
		Use:   "presets",
		Short: "List named size presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), formatPresets())
		},
	}
)

func formatPresets() string {
	var sb strings.Builder
	for _, p := range videoprocessor.GetSupportedPlatforms() {
		sb.WriteString(fmt.Sprintf("- %-16s %-10s %s\n", p.Name, humanize.IBytes(uint64(p.MaxFileSize)), p.Description))
	}
	return sb.String()
}

func optionsFromFlags(cmd *cobra.Command) videoprocessor.Options {
	flags := cmd.Flags()
	opts := videoprocessor.Options{
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	}
	opts.OutputDir, _ = flags.GetString("output")
	opts.TargetMB, _ = flags.GetInt("target-mb")
	opts.Target, _ = flags.GetString("target")
	opts.Preset, _ = flags.GetString("preset")
	opts.FFmpegPath, _ = flags.GetString("ffmpeg")
	opts.FFprobePath, _ = flags.GetString("ffprobe")
	opts.ConfigPath, _ = flags.GetString("config")
	opts.Verbose, _ = flags.GetBool("verbose")
	opts.LogFormat, _ = flags.GetString("log-format")
	opts.NoColor, _ = flags.GetBool("no-color")
	return opts
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "Config file (default: user config dir/shrinkvid/config.toml)")
	pf.BoolP("verbose", "v", false, "Enable debug logging and show ffmpeg output")
	pf.String("log-format", "", "Diagnostic log format (console or json)")
	pf.Bool("no-color", false, "Disable colored output")
	pf.String("ffmpeg", "", "Path to the ffmpeg binary")
	pf.String("ffprobe", "", "Path to the ffprobe binary")

	for _, cmd := range []*cobra.Command{compressCmd, probeCmd} {
		cmd.Flags().IntP("target-mb", "s", 0, "Target size per file in MB (1 MB = 1024*1024 bytes)")
		cmd.Flags().String("target", "", "Target size per file, e.g. 8MiB or 25MB")
		cmd.Flags().StringP("preset", "p", "", "Use a named preset's size limit (see 'shrinkvid presets')")
	}
	compressCmd.Flags().StringP("output", "o", "", "Output folder")

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(presetsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
