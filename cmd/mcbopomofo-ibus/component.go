//go:build linux

package main

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"mcbopomofo/internal/config"
	"mcbopomofo/internal/ime"
)

const defaultBinPath = "/usr/local/bin/mcbopomofo-ibus"

type ibusComponent struct {
	XMLName     xml.Name     `xml:"component"`
	Name        string       `xml:"name"`
	Description string       `xml:"description"`
	Exec        string       `xml:"exec"`
	Version     string       `xml:"version"`
	Author      string       `xml:"author"`
	License     string       `xml:"license"`
	Homepage    string       `xml:"homepage"`
	TextDomain  string       `xml:"textdomain"`
	Engines     []ibusEngine `xml:"engines>engine"`
}

type ibusEngine struct {
	Name        string `xml:"name"`
	Language    string `xml:"language"`
	License     string `xml:"license"`
	Author      string `xml:"author"`
	Icon        string `xml:"icon"`
	Layout      string `xml:"layout"`
	LongName    string `xml:"longname"`
	Description string `xml:"description"`
	Rank        int    `xml:"rank"`
	Symbol      string `xml:"symbol"`
}

// componentXML renders the IBus component description for the engine
// served on busName by the binary at binPath.
func componentXML(busName, binPath string) ([]byte, error) {
	c := ibusComponent{
		Name:        busName,
		Description: "McBopomofo Bopomofo input method",
		Exec:        binPath,
		Version:     fmt.Sprintf("%d.0.0", config.Version),
		Author:      "McBopomofo",
		License:     "MIT",
		Homepage:    "https://mcbopomofo.openvanilla.org/",
		TextDomain:  ime.IBusEngineName,
		Engines: []ibusEngine{{
			Name:        ime.IBusEngineName,
			Language:    "zh_TW",
			License:     "MIT",
			Author:      "McBopomofo",
			Icon:        ime.IBusEngineName,
			Layout:      "us",
			LongName:    "McBopomofo",
			Description: "Smart Bopomofo phonetic input",
			Rank:        99,
			Symbol:      "ㄅ",
		}},
	}
	out, err := xml.MarshalIndent(c, "", "    ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func componentPath(cfg *config.Config) string {
	return filepath.Join(cfg.IBus.ComponentDir, ime.IBusEngineName+".xml")
}

func installComponent(cfg *config.Config) (string, error) {
	if err := os.MkdirAll(cfg.IBus.ComponentDir, 0755); err != nil {
		return "", err
	}

	binPath, err := os.Executable()
	if err != nil {
		binPath = defaultBinPath
	}

	data, err := componentXML(cfg.IBus.BusName, binPath)
	if err != nil {
		return "", err
	}
	path := componentPath(cfg)
	return path, os.WriteFile(path, data, 0644)
}

func uninstallComponent(cfg *config.Config) error {
	err := os.Remove(componentPath(cfg))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
