// Package encoding renders snapshots as JSON, YAML or CBOR documents
package encoding

import (
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"pulsepc/internal/telemetry"
)

// Format is an output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseFormat accepts a format name, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text, json, yaml or cbor)", s)
	}
}

// Binary reports whether the format should not be written to a terminal
func (f Format) Binary() bool { return f == FormatCBOR }

// Encode writes the snapshots to w. JSON and YAML emit a single list,
// CBOR emits one item per snapshot so the stream can be read incrementally.
func Encode(w io.Writer, f Format, snaps []*telemetry.Snapshot) error {
	docs := make([]Document, 0, len(snaps))
	for _, s := range snaps {
		docs = append(docs, FromSnapshot(s))
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		for _, d := range docs {
			b, err := MarshalCBOR(d)
			if err != nil {
				return err
			}
			if _, err := w.Write(b); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("format %q is not a document encoding", f)
	}
}

// DecodeJSON reads documents written by Encode in JSON form
func DecodeJSON(r io.Reader) ([]Document, error) {
	var docs []Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// DecodeYAML reads documents written by Encode in YAML form
func DecodeYAML(r io.Reader) ([]Document, error) {
	var docs []Document
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
		return nil, err
	}
	return docs, nil
}
