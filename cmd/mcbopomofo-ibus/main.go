//go:build linux

// mcbopomofo-ibus is the Linux IBus Input Method Engine.
//
// It connects to the IBus daemon via D-Bus, serves one input controller per
// input context and keeps the user phrase table on disk.
//
// Installation:
//  1. Copy binary to /usr/local/bin/mcbopomofo-ibus
//  2. Run mcbopomofo-ibus -install
//  3. Restart IBus: ibus restart
//  4. Enable via: ibus-setup or GNOME Settings > Keyboard > Input Sources
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/godbus/dbus/v5"

	"mcbopomofo/internal/config"
	"mcbopomofo/internal/host"
	"mcbopomofo/internal/ime"
	"mcbopomofo/internal/logging"
)

const component = "mcbopomofo-ibus"

func main() {
	configPath := flag.String("config", "", "Path to config file")
	installFlag := flag.Bool("install", false, "Install IBus component")
	uninstallFlag := flag.Bool("uninstall", false, "Uninstall IBus component")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *installFlag {
		dest, err := installComponent(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to install: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Installed %s. Run 'ibus restart' to load.\n", dest)
		return
	}

	if *uninstallFlag {
		if err := uninstallComponent(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to uninstall: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Uninstalled successfully.")
		return
	}

	env, err := host.Open(cfg, component)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	logger := env.Logger.WithProcess()
	logging.SetDefault(logger)
	if created {
		logger.Info("wrote default config", "path", path)
	}

	var code int
	if env.Crash.Recover(map[string]string{"phase": "run"}, func() {
		if err := run(env, logger, path); err != nil {
			logger.Error("engine stopped", "error", err)
			code = 1
		}
	}) {
		code = 2
	}
	env.Close()
	os.Exit(code)
}

func run(env *host.Env, logger *logging.Logger, configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var settings atomic.Pointer[ime.Settings]
	initial := env.Settings()
	settings.Store(&initial)

	env.PersistPhrases()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("connect to session bus: %w", err)
	}
	defer conn.Close()

	factory := ime.NewIBusFactory(conn, env.Model, func() ime.Settings {
		return *settings.Load()
	}, logger.Logger)
	factory.SetObserver(env.Metrics)
	if err := factory.Export(); err != nil {
		return fmt.Errorf("export factory: %w", err)
	}

	busName := env.Config.IBus.BusName
	reply, err := conn.RequestName(busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", busName)
	}

	loader := config.NewLoader(configPath)
	if _, err := loader.Load(); err != nil {
		logger.Warn("config reload disabled", "error", err)
	} else {
		loader.OnChange(func(cfg *config.Config) {
			s, err := cfg.InputSettings()
			if err != nil {
				logger.Warn("ignoring input settings", "error", err)
				return
			}
			settings.Store(&s)
			conv := host.LoadConverter(&cfg.Input, &cfg.Data, logger.Logger)
			env.Model.SetConverter(conv)
			factory.Each(func(c *ime.InputController) {
				if err := c.ApplySettings(s); err != nil {
					logger.Warn("apply settings failed", "error", err)
				}
				c.SetConverter(conv)
			})
			logger.Info("settings reloaded", "layout", s.Layout.Name, "chinese_conversion", cfg.Input.ChineseConversion)
		})
		if err := loader.Watch(); err != nil {
			logger.Warn("config watch failed", "error", err)
		}
		defer loader.Close()
		go func() {
			defer env.Crash.RecoverGoroutine("config errors")
			for {
				select {
				case err := <-loader.Errors():
					logger.Warn("config reload failed", "error", err)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	if err := env.WatchPhrases(ctx, func(phrases map[string][]string) {
		env.Model.SetUserPhrases(phrases)
		factory.Each(func(c *ime.InputController) { c.SetUserPhrases(phrases) })
		logger.Info("user phrases reloaded", "readings", len(phrases))
	}); err != nil {
		logger.Warn("phrase watch failed", "error", err)
	}

	if addr := env.Config.Metrics.Listen; addr != "" {
		serveMetrics(ctx, env, logger, addr)
	}

	logger.Info("engine started", "bus_name", busName, "engine", ime.IBusEngineName)
	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// serveMetrics exposes the engine metrics until ctx is done.
func serveMetrics(ctx context.Context, env *host.Env, logger *logging.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", env.Metrics.Registry().HTTPHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		defer env.Crash.RecoverGoroutine("metrics server")
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}
