// Package schemavalidation checks JSON documents exchanged with hosts
// against the embedded schemas.
package schemavalidation

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// baseURL is the $id prefix of the embedded schemas.
const baseURL = "https://mcbopomofo.local/schema/"

// Schema file names.
const (
	SnapshotSchema    = "snapshot.schema.json"
	UserPhrasesSchema = "user-phrases.schema.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		names := []string{SnapshotSchema, UserPhrasesSchema}
		for _, name := range names {
			data, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = fmt.Errorf("read schema %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(baseURL+name, bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("add schema resource %s: %w", name, err)
				return
			}
		}
		compiled = make(map[string]*jsonschema.Schema, len(names))
		for _, name := range names {
			s, err := compiler.Compile(baseURL + name)
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Validate checks the JSON document data against the named schema.
func Validate(schemaName string, data []byte) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	schema, ok := all[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema %q", schemaName)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal instance: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("%s: %w", schemaName, err)
	}
	return nil
}

// ValidateSnapshot checks an encoded render snapshot.
func ValidateSnapshot(data []byte) error {
	return Validate(SnapshotSchema, data)
}

// ValidateUserPhrases checks an encoded user phrase table.
func ValidateUserPhrases(data []byte) error {
	return Validate(UserPhrasesSchema, data)
}
