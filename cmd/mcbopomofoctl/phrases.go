package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"mcbopomofo/internal/ime"
	"mcbopomofo/internal/store"
)

func (a *app) cmdPhrases(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: mcbopomofoctl phrases list|add|remove|import|export")
	}

	switch args[0] {
	case "list":
		prefix := ""
		if len(args) >= 2 {
			prefix = args[1]
		}
		return a.listPhrases(prefix)
	case "add":
		if len(args) != 3 {
			return errors.New("usage: mcbopomofoctl phrases add <reading> <text>")
		}
		return a.addPhrase(args[1], args[2])
	case "remove":
		if len(args) != 3 {
			return errors.New("usage: mcbopomofoctl phrases remove <reading> <text>")
		}
		return a.removePhrase(args[1], args[2])
	case "import":
		if len(args) != 2 {
			return errors.New("usage: mcbopomofoctl phrases import <file.json>")
		}
		return a.importPhrases(args[1])
	case "export":
		output := ""
		if len(args) >= 2 {
			output = args[1]
		}
		return a.exportPhrases(output)
	default:
		return fmt.Errorf("unknown phrases command: %s", args[0])
	}
}

func (a *app) listPhrases(prefix string) error {
	if db := a.env.DB(); db != nil {
		rows, err := db.List(prefix)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%-20s %-12s %-9s %s\n", "Reading", "Phrase", "Source", "Added")
		for _, p := range rows {
			fmt.Fprintf(a.out, "%-20s %-12s %-9s %s\n", p.Reading, p.Text, p.Source, p.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}

	phrases, err := a.env.Store.Load()
	if err != nil {
		return err
	}
	readings := make([]string, 0, len(phrases))
	for reading := range phrases {
		if strings.HasPrefix(reading, prefix) {
			readings = append(readings, reading)
		}
	}
	slices.Sort(readings)

	fmt.Fprintf(a.out, "%-20s %s\n", "Reading", "Phrase")
	for _, reading := range readings {
		for _, text := range phrases[reading] {
			fmt.Fprintf(a.out, "%-20s %s\n", reading, text)
		}
	}
	return nil
}

func (a *app) addPhrase(reading, text string) error {
	if db := a.env.DB(); db != nil {
		added, err := db.Add(reading, text, store.SourceManual)
		if err != nil {
			return err
		}
		a.report(added, reading, text)
		return nil
	}

	a.env.PersistPhrases()
	added, err := a.env.Model.AddUserPhrase(reading, text)
	if err != nil {
		return err
	}
	a.report(added, reading, text)
	return nil
}

func (a *app) report(added bool, reading, text string) {
	if added {
		fmt.Fprintf(a.out, "Added %s (%s)\n", text, reading)
	} else {
		fmt.Fprintf(a.out, "%s (%s) already present\n", text, reading)
	}
}

func (a *app) removePhrase(reading, text string) error {
	if db := a.env.DB(); db != nil {
		removed, err := db.Remove(reading, text)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("%s (%s) not found", text, reading)
		}
		fmt.Fprintf(a.out, "Removed %s (%s)\n", text, reading)
		return nil
	}

	phrases, err := a.env.Store.Load()
	if err != nil {
		return err
	}
	list := phrases[reading]
	i := slices.Index(list, text)
	if i < 0 {
		return fmt.Errorf("%s (%s) not found", text, reading)
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(phrases, reading)
	} else {
		phrases[reading] = list
	}
	if err := a.env.Store.Save(phrases); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s (%s)\n", text, reading)
	return nil
}

func (a *app) importPhrases(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	incoming, err := ime.DecodePhrases(data)
	if err != nil {
		return err
	}

	var added int
	if db := a.env.DB(); db != nil {
		added, err = db.Merge(incoming, store.SourceImported)
		if err != nil {
			return err
		}
	} else {
		phrases, err := a.env.Store.Load()
		if err != nil {
			return err
		}
		for reading, list := range incoming {
			for _, text := range list {
				if text != "" && !slices.Contains(phrases[reading], text) {
					phrases[reading] = append(phrases[reading], text)
					added++
				}
			}
		}
		if err := a.env.Store.Save(phrases); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Imported %d phrases from %s\n", added, path)
	return nil
}

func (a *app) exportPhrases(output string) error {
	phrases, err := a.env.Store.Load()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(phrases, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if output == "" {
		_, err := a.out.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d readings to %s\n", len(phrases), output)
	return nil
}

func (a *app) cmdVerify() error {
	if db := a.env.DB(); db != nil {
		if err := db.Verify(); err != nil {
			return fmt.Errorf("database check failed: %w", err)
		}
		status, err := db.MigrationStatus()
		if err != nil {
			return err
		}
		count, err := db.Count()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Database:        %s\n", db.Path())
		fmt.Fprintf(a.out, "Schema version:  %d of %d\n", status.CurrentVersion, status.LatestVersion)
		fmt.Fprintf(a.out, "Phrases:         %d\n", count)
		fmt.Fprintln(a.out, "OK")
		return nil
	}

	phrases, err := a.env.Store.Load()
	if err != nil {
		return fmt.Errorf("phrase file check failed: %w", err)
	}
	count := 0
	for _, list := range phrases {
		count += len(list)
	}
	fmt.Fprintf(a.out, "Phrase file:     %s\n", a.env.Config.Data.UserPhrasePath)
	fmt.Fprintf(a.out, "Phrases:         %d\n", count)
	fmt.Fprintln(a.out, "OK")
	return nil
}
