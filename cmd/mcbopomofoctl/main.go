// mcbopomofoctl is the command-line companion of the McBopomofo engine.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"mcbopomofo/internal/config"
	"mcbopomofo/internal/host"
)

var (
	configPath = flag.String("config", "", "path to config file")
	verbose    = flag.Bool("v", false, "log at debug level to stderr")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	if err := dispatch(flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "decode":
		return withEnv(func(a *app) error { return a.cmdDecode(args) }, out)
	case "type":
		return withEnv(func(a *app) error { return a.cmdType(args) }, out)
	case "phrases":
		return withEnv(func(a *app) error { return a.cmdPhrases(args) }, out)
	case "verify":
		return withEnv(func(a *app) error { return a.cmdVerify() }, out)
	case "config":
		return cmdConfig(out)
	case "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `mcbopomofoctl - Control utility for McBopomofo

Usage: mcbopomofoctl [options] <command> [args]

Commands:
  decode <reading>...          Print the best sentence for a reading sequence
  type <keys>                  Feed keystrokes to an input controller and print
                               the commits and the final composing state.
                               Named keys are written in braces: {Enter}
  phrases list [prefix]        List user phrases
  phrases add <reading> <text> Add a user phrase
  phrases remove <reading> <text>
                               Remove a user phrase
  phrases import <file.json>   Merge a user phrase file into the table
  phrases export [file.json]   Write the user phrase table as JSON
  verify                       Check the user phrase store
  config                       Print the effective configuration
  help                         Show this help message

Options:
  -config <path>  Path to config file
  -v              Log at debug level to stderr`)
}

func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	return config.Load(path)
}

// app carries the loaded environment through a command.
type app struct {
	env *host.Env
	out io.Writer
}

func withEnv(fn func(*app) error, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Commands print their results; logs go to stderr and stay quiet unless asked.
	cfg.Logging.Output = "stderr"
	cfg.Logging.Level = "warn"
	if *verbose {
		cfg.Logging.Level = "debug"
	}

	env, err := host.Open(cfg, "mcbopomofoctl")
	if err != nil {
		return err
	}
	defer env.Close()

	return fn(&app{env: env, out: out})
}

func cmdConfig(out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	data, err := cfg.EncodeTOML()
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return err
	}

	if errs, ok := cfg.Validate().(config.ValidationErrors); ok && len(errs) > 0 {
		fmt.Fprintf(out, "\n# Errors:\n")
		for _, e := range errs {
			fmt.Fprintf(out, "#   %s\n", e.Error())
		}
	}
	if warnings := cfg.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(out, "\n# Warnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(out, "#   %s\n", w.Error())
		}
	}
	return nil
}
