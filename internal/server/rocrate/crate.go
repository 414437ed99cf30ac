// Package rocrate renders the RO-Crate archive sent to the Workflow API:
// a zip holding workflow.yaml and ro-crate-metadata.json.
package rocrate

import (
	"archive/zip"
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed templates
var templatesFS embed.FS

const (
	WorkflowFile = "workflow.yaml"
	MetadataFile = "ro-crate-metadata.json"
)

// Context is the data the crate templates are rendered against.
type Context struct {
	WorkflowName   string
	Description    string
	SpeciesName    string
	EcosystemType  string
	GeometryType   string
	GeometryWKT    string
	TimePeriods    []string
	DirectiveTypes []string
}

// File is one rendered crate member.
type File struct {
	Name string
	Data []byte
}

// Crate is a built archive plus the files it contains, in archive order.
type Crate struct {
	Zip   []byte
	Files []File
}

var templateSets = map[string]string{
	"terrestrial": "terrestrial-sdm",
}

var funcs = template.FuncMap{
	// quote emits a JSON string literal, which is also a valid YAML scalar.
	"quote": func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
	"join": strings.Join,
}

// Render renders the template set for c.EcosystemType and checks that both
// outputs parse.
func Render(c Context) ([]File, error) {
	set, ok := templateSets[c.EcosystemType]
	if !ok {
		return nil, fmt.Errorf("no crate template for ecosystem %q", c.EcosystemType)
	}

	files := make([]File, 0, 2)
	for _, name := range []string{WorkflowFile, MetadataFile} {
		path := "templates/" + set + "/" + name
		tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").ParseFS(templatesFS, path)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, c); err != nil {
			return nil, fmt.Errorf("render %s: %w", path, err)
		}
		files = append(files, File{Name: name, Data: buf.Bytes()})
	}

	var doc map[string]any
	if err := yaml.Unmarshal(files[0].Data, &doc); err != nil {
		return nil, fmt.Errorf("rendered %s is not valid YAML: %w", WorkflowFile, err)
	}
	if !json.Valid(files[1].Data) {
		return nil, fmt.Errorf("rendered %s is not valid JSON", MetadataFile)
	}

	return files, nil
}

// Build renders the crate and packs it into a deflate-compressed zip.
func Build(c Context) (*Crate, error) {
	files, err := Render(c)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: now})
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}

	return &Crate{Zip: buf.Bytes(), Files: files}, nil
}

// Summary lists the archive members as "name (N bytes)".
func (c *Crate) Summary() []string {
	out := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		out = append(out, fmt.Sprintf("%s (%d bytes)", f.Name, len(f.Data)))
	}
	return out
}
