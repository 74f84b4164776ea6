// Package export serializes finished runs into canonical, validated documents.
package export

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gowebpki/jcs"
	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/stmobo/thstat-sub001/internal/model"
)

// SchemaID is the schema tag written into every document.
const SchemaID = "thstat.run/v1"

// Format selects the file encoding of an export.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatJSON, FormatYAML:
		return Format(value), nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown export format %q (valid: json, yaml)", value)
	}
}

// ErrInvalidDocument is returned when a document fails schema validation.
var ErrInvalidDocument = errors.New("run document does not match schema")

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Document is the exported form of a run.
type Document struct {
	Schema   string               `json:"schema" yaml:"schema"`
	Run      model.Run            `json:"run" yaml:"run"`
	Attempts []model.KeyedAttempt `json:"attempts" yaml:"attempts"`
}

// NewDocument wraps a run and its attempts.
func NewDocument(run model.Run, attempts []model.KeyedAttempt) Document {
	if attempts == nil {
		attempts = []model.KeyedAttempt{}
	}
	return Document{Schema: SchemaID, Run: run, Attempts: attempts}
}

// Canonical encodes doc as RFC 8785 canonical JSON, validates it and returns
// the body with its sha256 hex digest.
func Canonical(doc Document) ([]byte, string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode run: %w", err)
	}
	body, err := jcs.Transform(raw)
	if err != nil {
		return nil, "", fmt.Errorf("failed to canonicalize run: %w", err)
	}
	if err := Validate(body); err != nil {
		return nil, "", err
	}
	return body, Digest(body), nil
}

// Digest returns the sha256 hex digest of a canonical body.
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Verify recomputes the digest of a stored body.
func Verify(body []byte, digest string) error {
	canonical, err := jcs.Transform(body)
	if err != nil {
		return fmt.Errorf("failed to canonicalize run: %w", err)
	}
	if got := Digest(canonical); got != digest {
		return fmt.Errorf("digest mismatch: stored %s, computed %s", digest, got)
	}
	return nil
}

// Validate checks a JSON document against the run schema.
func Validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	result := s.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidDocument, result.Errors)
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		schema, schemaErr = compiler.Compile(schemaJSON)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile run schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Decode parses a stored JSON body.
func Decode(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to decode run: %w", err)
	}
	return doc, nil
}

// Encode renders doc in the requested format. JSON output is canonical.
func Encode(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return out, nil
	case FormatJSON, "":
		body, _, err := Canonical(doc)
		return body, err
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// FileName returns the file name used for an exported run.
func FileName(run model.Run, format Format) string {
	ext := string(format)
	if ext == "" {
		ext = string(FormatJSON)
	}
	return fmt.Sprintf("%s-%s-%s.%s", run.Game, run.Start.Time.Timestamp.UTC().Format("20060102T150405"), run.ID, ext)
}

// WriteFile writes doc into dir and returns the file path.
func WriteFile(dir string, doc Document, format Format) (string, error) {
	data, err := Encode(doc, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(doc.Run, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
