// Command skyvox-sim flies the vehicle headlessly from typed or scripted
// utterances, or from live speech when a recognizer is configured.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	cli "github.com/spf13/pflag"

	"skyvox/internal/bootstrap"
	"skyvox/internal/config"
	"skyvox/internal/domain"
)

type options struct {
	envFile  string
	logLevel string
	script   string
	fps      int
	duration time.Duration
	listen   bool
}

func parseOptions(args []string) (options, error) {
	var opts options
	flags := cli.NewFlagSet("skyvox-sim", cli.ContinueOnError)
	flags.StringVarP(&opts.envFile, "env", "e", "", "Env file path")
	flags.StringVarP(&opts.logLevel, "log", "l", "", "Log level (overrides SKYVOX_LOG_LEVEL)")
	flags.StringVarP(&opts.script, "script", "s", "", "Script of utterances and 'wait <duration>' lines, replayed in simulated time")
	flags.IntVar(&opts.fps, "fps", 0, "Frame rate (overrides SKYVOX_FRAME_RATE)")
	flags.DurationVar(&opts.duration, "duration", 0, "Extra time to simulate after the script, or wall-clock limit when interactive")
	flags.BoolVar(&opts.listen, "listen", false, "Start listening with the configured recognizer")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	if opts.fps < 0 {
		return options{}, fmt.Errorf("--fps must not be negative")
	}
	return opts, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		slog.Error("simulation failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.fps > 0 {
		cfg.Render.FrameRate = opts.fps
	}

	logger := bootstrap.NewLogger(stderr, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("booting simulator", "recognizer", cfg.Recognizer, "fps", cfg.Render.FrameRate)

	sink := newLogSink(logger, uint64(cfg.Render.FrameRate))
	services, err := bootstrap.Build(cfg, sink, nil, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	if opts.script != "" {
		file, err := os.Open(opts.script)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer file.Close()

		frame, err := replay(services, file, cfg.Render.FrameRate, opts.duration)
		if err != nil {
			return err
		}
		printFrame(stdout, frame)
		return nil
	}

	if opts.listen {
		listening := services.Listening()
		if listening == nil || !listening.Supported() {
			return fmt.Errorf("recognizer %q is not available here", cfg.Recognizer)
		}
		listening.RequestStart()
	}

	frame, err := interactive(ctx, services, stdin, opts.duration)
	if err != nil {
		return err
	}
	printFrame(stdout, frame)
	return nil
}

func printFrame(w io.Writer, frame domain.Frame) {
	p := frame.Vehicle.Pose
	fmt.Fprintf(w, "frame=%d status=%s command=%s position=(%.2f, %.2f, %.2f) heading=%.3f\n",
		frame.Seq, frame.Vehicle.Status, frame.Command.Label(),
		p.Position.X, p.Position.Y, p.Position.Z, p.Heading)
}
