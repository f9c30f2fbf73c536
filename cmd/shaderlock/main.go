// shaderlock locks a Wayland session with ext-session-lock-v1 and renders a
// WGSL shader over a background on every output until the user's password
// is accepted by PAM.
//
// With --screensave it runs the same renderer without locking and exits on
// the first key press.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tuxx/shaderlock/internal/config"
	"github.com/tuxx/shaderlock/internal/logging"
	"github.com/tuxx/shaderlock/internal/overlay"
	"github.com/tuxx/shaderlock/internal/pidlock"
	"github.com/tuxx/shaderlock/internal/session"
	"github.com/tuxx/shaderlock/internal/wayland"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shaderlock: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var flags config.Flags
	flagSet := pflag.NewFlagSet(config.AppName, pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if flagSet.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}

	if flags.Daemonize {
		return daemonize(os.Args[1:])
	}

	level, err := logging.ParseLevel(flags.LogLevel)
	if err != nil {
		return err
	}
	var out io.Writer = os.Stderr
	if flags.Logfile != "" {
		f, err := os.OpenFile(flags.Logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	log := logging.New(out, level)
	logging.Install(log)

	cfg, err := config.Resolve(flagSet, &flags, log)
	if err != nil {
		return err
	}

	instance, err := pidlock.Acquire(pidlock.DefaultPath(config.AppName))
	if err != nil {
		return err
	}
	defer func() {
		if err := instance.Release(); err != nil {
			log.Warn("release pid lock", "err", err)
		}
	}()

	// Cancellation ends screensaver mode and a lock that was not granted
	// yet. Once locked the controller ignores it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(ctx, cfg, nil, log)
	if err != nil {
		return err
	}

	builder := session.NewGPUBuilder(settings, loadFonts(cfg.Font, log), log)
	defer builder.Release()

	controller := session.New(session.Options{
		Dial: func(ctx context.Context) (session.Conn, error) {
			conn, err := wayland.Dial(ctx, log)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		Build:       builder.Build,
		LockMode:    settings.LockMode,
		FramePeriod: settings.FramePeriod(),
		Logger:      log,
	})

	log.Info("starting",
		"lock", settings.LockMode,
		"shader", settings.ShaderPath,
		"fps", cfg.FPS,
		"pid", os.Getpid(),
	)
	if err := controller.Run(ctx); err != nil {
		if errors.Is(err, session.ErrProtocolUnsupported) {
			return fmt.Errorf("%w (is this a Wayland compositor with ext-session-lock-v1?)", err)
		}
		return err
	}
	log.Info("exiting")
	return nil
}

func loadFonts(path string, log *slog.Logger) *overlay.Fonts {
	if path == "" {
		return overlay.DefaultFonts()
	}
	f, err := overlay.LoadFonts(path)
	if err != nil {
		log.Warn("cannot load font, using the embedded one", "font", path, "err", err)
		return overlay.DefaultFonts()
	}
	return f
}

// daemonize starts a copy of this process in a new session without the
// daemonize flag and returns as soon as it is running.
func daemonize(args []string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	cmd := exec.Command(exe, stripDaemonize(args)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start background process: %w", err)
	}
	return cmd.Process.Release()
}

// stripDaemonize removes every form of the daemonize flag from args.
func stripDaemonize(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		switch {
		case arg == "--daemonize", strings.HasPrefix(arg, "--daemonize="):
			continue
		case strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && len(arg) > 1:
			arg = stripShort(arg)
			if arg == "" {
				continue
			}
		}
		out = append(out, arg)
	}
	return out
}

// shortWithValue are the single-letter flags that take a value; anything
// after them in a combined group is the value.
const shortWithValue = "csbl"

func stripShort(arg string) string {
	var b strings.Builder
	b.WriteByte('-')
	for i := 1; i < len(arg); i++ {
		c := arg[i]
		if strings.IndexByte(shortWithValue, c) >= 0 {
			b.WriteString(arg[i:])
			break
		}
		if c != 'f' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 1 {
		return ""
	}
	return b.String()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `shaderlock: lock a Wayland session behind a live shader.

Locks every output with ext-session-lock-v1, renders a WGSL fragment shader
over a background image or a screenshot, and unlocks once the password is
accepted by PAM. Settings come from $XDG_CONFIG_HOME/shaderlock/config.yaml
when it exists; flags override it.

With --daemonize the locker runs detached with its output discarded, so use
--logfile to keep its logs.

Usage:
  shaderlock [flags]

Examples:
  # Lock with a random shader from the default directory
  shaderlock

  # Preview a shader as a screensaver over a wallpaper
  shaderlock --screensave -s ~/shaders/plasma.wgsl -b ~/Pictures/wall.png

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
