//go:build linux

package main

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"

	"mcbopomofo/internal/config"
	"mcbopomofo/internal/ime"
)

func TestComponentXML(t *testing.T) {
	data, err := componentXML("org.example.Bopomofo", "/opt/bin/mcbopomofo-ibus")
	if err != nil {
		t.Fatalf("componentXML failed: %v", err)
	}

	var c ibusComponent
	if err := xml.Unmarshal(data, &c); err != nil {
		t.Fatalf("output is not valid XML: %v", err)
	}
	if c.Name != "org.example.Bopomofo" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Exec != "/opt/bin/mcbopomofo-ibus" {
		t.Errorf("exec = %q", c.Exec)
	}
	if len(c.Engines) != 1 || c.Engines[0].Name != ime.IBusEngineName {
		t.Errorf("engines = %+v", c.Engines)
	}
}

func TestInstallAndUninstall(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.IBus.ComponentDir = filepath.Join(t.TempDir(), "component")

	path, err := installComponent(cfg)
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if filepath.Base(path) != "mcbopomofo.xml" {
		t.Errorf("component path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("component not written: %v", err)
	}

	if err := uninstallComponent(cfg); err != nil {
		t.Fatalf("uninstall failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("component still present: %v", err)
	}
	if err := uninstallComponent(cfg); err != nil {
		t.Errorf("second uninstall should be a no-op: %v", err)
	}
}
