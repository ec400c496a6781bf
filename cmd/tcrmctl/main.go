// Command tcrmctl is a demo CLI driving the task supervision engine. It has
// one subcommand per engine operation: run, status, logs, stop, pause,
// resume, send. Each invocation builds its own in-memory registry, so status,
// logs, stop, pause, resume and send only look up tasks started in that same
// invocation; a task started by `run` in another invocation is not found.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xpcn2015/tcrm/internal/env"
	"github.com/xpcn2015/tcrm/internal/registry"
	"github.com/xpcn2015/tcrm/internal/task"
)

func newLogger() *zap.Logger {
	var logConfig zap.Config
	if env.IsDev() {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.TimeKey = ""
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		logConfig = zap.NewProductionConfig()
	}
	logConfig.DisableStacktrace = true
	log := zap.Must(logConfig.Build())
	return log.Named("tcrmctl")
}

func main() {
	log := newLogger()
	defer log.Sync()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	reg := registry.New(log)

	switch os.Args[1] {
	case "run":
		cmdRun(log, reg, os.Args[2:])
	case "status":
		cmdStatus(log, reg, os.Args[2:])
	case "logs":
		cmdLogs(log, reg, os.Args[2:])
	case "stop":
		cmdStop(log, reg, os.Args[2:])
	case "pause":
		cmdControl(log, reg, os.Args[2:], task.ActionPause)
	case "resume":
		cmdControl(log, reg, os.Args[2:], task.ActionResume)
	case "send":
		cmdSend(log, reg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tcrmctl <command> [args]

commands:
  run <name> <command> [args...]   start a named task, blocking until it exits
  status <name>                    print the task's current information
  logs [-n N] <name>               print up to N scrollback lines
  stop <name>                      request graceful termination
  pause <name>                     pause the task's process group
  resume <name>                    resume a paused task
  send <name> <text>               write a line to the task's stdin`)
}

func cmdRun(log *zap.Logger, reg *registry.Registry, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	workDir := fs.String("workdir", "", "working directory")
	timeout := fs.Duration("timeout", 0, "run timeout, 0 disables")
	ready := fs.String("ready", "", "substring marking the task ready once seen on stdout")
	stdin := fs.Bool("stdin", false, "enable stdin forwarding")
	strict := fs.Bool("strict", false, "reject shell metacharacters in command/args")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 2 {
		fmt.Fprintln(os.Stderr, "run requires <name> <command> [args...]")
		os.Exit(2)
	}
	name, command, rest := rest[0], rest[1], rest[2:]

	cfg := task.NewConfiguration(command).WithArgs(rest...).WithStdin(*stdin)
	if *workDir != "" {
		cfg = cfg.WithWorkingDir(*workDir)
	}
	if *timeout > 0 {
		cfg = cfg.WithTimeout(*timeout)
	}
	if *ready != "" {
		cfg = cfg.WithReadyIndicator(*ready, task.SourceStdout)
	}

	var validateErr error
	if *strict {
		validateErr = cfg.ValidateStrict()
	} else {
		validateErr = cfg.Validate()
	}
	if validateErr != nil {
		log.Fatal("invalid configuration", zap.Error(validateErr))
	}

	if err := reg.Start(name, cfg, env.SinkCapacity()); err != nil {
		log.Fatal("start failed", zap.String("task_name", name), zap.Error(err))
	}
	log.Info("task started", zap.String("task_name", name))

	for {
		time.Sleep(200 * time.Millisecond)
		info, err := reg.Status(context.Background(), name)
		if err != nil {
			log.Fatal("status lookup failed", zap.Error(err))
		}
		if info.State == task.StateFinished {
			if info.ExitCode != nil {
				log.Info("task finished", zap.String("task_name", name), zap.Int("exit_code", *info.ExitCode))
			} else {
				log.Info("task finished", zap.String("task_name", name))
			}
			return
		}
	}
}

func cmdStatus(log *zap.Logger, reg *registry.Registry, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "status requires <name>")
		os.Exit(2)
	}
	info, err := reg.Status(context.Background(), args[0])
	if err != nil {
		log.Fatal("status lookup failed", zap.Error(err))
	}
	fmt.Printf("state: %s\n", info.State)
	if info.ProcessID != nil {
		fmt.Printf("pid: %d\n", *info.ProcessID)
	}
	if info.ExitCode != nil {
		fmt.Printf("exit_code: %d\n", *info.ExitCode)
	}
	if info.StopReason != nil {
		fmt.Printf("stop_reason: %s\n", info.StopReason.String())
	}
}

func cmdLogs(log *zap.Logger, reg *registry.Registry, args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	n := fs.Int("n", 0, "number of lines, 0 uses the ambient default")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "logs requires <name>")
		os.Exit(2)
	}

	lines, err := reg.Logs(rest[0], orDefault(*n, env.LogBufferLines()))
	if err != nil {
		log.Fatal("logs lookup failed", zap.Error(err))
	}
	for i := len(lines) - 1; i >= 0; i-- {
		prefix := "out"
		if lines[i].Stderr {
			prefix = "err"
		}
		fmt.Printf("[%s] %s\n", prefix, lines[i].Text)
	}
}

func cmdStop(log *zap.Logger, reg *registry.Registry, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "stop requires <name>")
		os.Exit(2)
	}
	if err := reg.Stop(args[0]); err != nil {
		log.Fatal("stop failed", zap.Error(err))
	}
}

func cmdControl(log *zap.Logger, reg *registry.Registry, args []string, action task.ControlAction) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "requires <name>")
		os.Exit(2)
	}
	ctl, err := reg.Controller(args[0])
	if err != nil {
		log.Fatal("lookup failed", zap.Error(err))
	}
	switch action {
	case task.ActionPause:
		err = ctl.Pause()
	case task.ActionResume:
		err = ctl.Resume()
	}
	if err != nil {
		log.Fatal("control action failed", zap.Error(err))
	}
}

func cmdSend(log *zap.Logger, reg *registry.Registry, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "send requires <name> <text>")
		os.Exit(2)
	}
	ctl, err := reg.Controller(args[0])
	if err != nil {
		log.Fatal("lookup failed", zap.Error(err))
	}
	text := strings.Join(args[1:], " ")
	if err := ctl.SendStdin([]byte(text)); err != nil {
		log.Fatal("send failed", zap.Error(err))
	}
}

func orDefault(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
