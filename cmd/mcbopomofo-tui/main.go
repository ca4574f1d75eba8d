// mcbopomofo-tui runs the input controller in the terminal.
//
// Everything the engine would do inside an IBus client happens here against
// a plain text buffer, which makes it the quickest way to try a phrase table
// or a keyboard layout. Phrases added while marking are saved to the
// configured user phrase store.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"mcbopomofo/internal/config"
	"mcbopomofo/internal/host"
	"mcbopomofo/internal/logging"
	"mcbopomofo/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	layout := flag.String("layout", "", "Keyboard layout (overrides config)")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *layout != "" {
		cfg.Input.Layout = *layout
	}

	// The terminal belongs to the UI; logs go to their own file.
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = filepath.Join(filepath.Dir(cfg.Logging.FilePath), "mcbopomofo-tui.log")

	env, err := host.Open(cfg, "mcbopomofo-tui")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	logger := env.Logger.WithProcess()
	logging.SetDefault(logger)
	env.PersistPhrases()

	var runErr error
	env.Crash.Recover(map[string]string{"phase": "tui"}, func() {
		p := tea.NewProgram(tui.NewModel(env.Model, env.Settings(), env.Metrics, logger.Logger))
		_, runErr = p.Run()
	})
	env.Close()

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
