package main

import (
	"os"
	"path"

	"github.com/alecthomas/kong"

	"github.com/swiftcitrus/hydrus/internal/cli"
	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

var (
	version = "hydrus v0.1.0"
)

type LogOpts struct {
	Level  string `help:"Logging level (debug, info, warn, error)" default:"info" envvar:"HYDRUS_LOG_LEVEL"`
	Debug  bool   `help:"Enable debug logging (overrides --level)"                envvar:"HYDRUS_DEBUG"`
	Stream bool   `help:"Log to stdout/stderr instead of file"                    envvar:"HYDRUS_LOG_STREAM"`
}

type CLI struct {
	Init   cli.InitCmd   `cmd:"" help:"Initialize a database directory"`
	Status cli.StatusCmd `cmd:"" help:"Show settings and per-file generations"`
	Flush  cli.FlushCmd  `cmd:"" help:"Close the current group on demand"`
	Verify cli.VerifyCmd `cmd:"" help:"Reconcile generation markers without mutating"`
	Exec   cli.ExecCmd   `cmd:"" help:"Apply a mutation and flush immediately"`

	LogOpts LogOpts          `embed:"" prefix:"log-" help:"Logging options"`
	Version kong.VersionFlag `                       help:"Show version information" short:"V"`
}

func createLogger(opts LogOpts) (logger.Logger, error) {
	var level string
	if opts.Debug {
		level = "debug"
	} else {
		level = opts.Level
	}

	consoleLogger := logger.NewConsoleLogger(level)
	if opts.Stream {
		return consoleLogger, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logDir := path.Join(homeDir, hydrus.DefaultAppDir, hydrus.DefaultLogDir)
	fileLogger, err := logger.NewFileLogger(
		logDir,
		hydrus.DefaultLogFileName,
		hydrus.DefaultLogMaxSize,
		hydrus.DefaultLogMaxBackups,
	)
	if err != nil {
		return nil, err
	}

	return logger.NewMultiLogger(fileLogger, consoleLogger), nil
}

func main() {
	cliApp := &CLI{}
	ctx := kong.Parse(cliApp,
		kong.Name("hydrus"),
		kong.Description("Batched commit coordinator for a multi-file embedded database"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	lg, err := createLogger(cliApp.LogOpts)
	if err != nil {
		ctx.FatalIfErrorf(err)
	}
	defer func() {
		if c, ok := lg.(logger.Closeable); ok {
			_ = c.Close()
		}
	}()

	err = ctx.Run(&cli.Ctx{Logger: lg})
	ctx.FatalIfErrorf(err)
}
