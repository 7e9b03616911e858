// Package persist writes and reads structured documents as JSON or YAML,
// choosing the codec from the file extension.
package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File extensions for supported codecs.
const (
	jsonExtension    = ".json"
	yamlExtension    = ".yaml"
	yamlAltExtension = ".yml"
)

// Default indentation for pretty-printed documents.
const (
	defaultIndent     = "  "
	defaultYAMLIndent = 2
)

// ErrUnsupportedFormat is returned for a file extension no codec handles.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Codec defines how a document is serialized and deserialized.
type Codec interface {
	// Encode writes the document to the writer.
	Encode(w io.Writer, doc any) error
	// Decode reads the document from the reader.
	Decode(r io.Reader, doc any) error
	// Extension returns the canonical file extension for this codec.
	Extension() string
}

// JSONCodec implements Codec using JSON encoding with optional indentation.
type JSONCodec struct {
	// Indent specifies the indentation string. Empty string means compact JSON.
	Indent string
}

// NewJSONCodec creates a JSON codec with pretty-printing (2-space indent).
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{Indent: defaultIndent}
}

// Encode implements Codec.Encode using JSON encoding.
func (c *JSONCodec) Encode(w io.Writer, doc any) error {
	encoder := json.NewEncoder(w)
	if c.Indent != "" {
		encoder.SetIndent("", c.Indent)
	}

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using JSON decoding.
func (c *JSONCodec) Decode(r io.Reader, doc any) error {
	err := json.NewDecoder(r).Decode(doc)
	if err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for JSON files.
func (c *JSONCodec) Extension() string {
	return jsonExtension
}

// YAMLCodec implements Codec using gopkg.in/yaml.v3.
type YAMLCodec struct {
	// Indent is the number of spaces per nesting level.
	Indent int
}

// NewYAMLCodec creates a YAML codec with 2-space indentation.
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{Indent: defaultYAMLIndent}
}

// Encode implements Codec.Encode using YAML encoding.
func (c *YAMLCodec) Encode(w io.Writer, doc any) error {
	encoder := yaml.NewEncoder(w)
	if c.Indent > 0 {
		encoder.SetIndent(c.Indent)
	}

	err := encoder.Encode(doc)
	if err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("yaml flush: %w", err)
	}

	return nil
}

// Decode implements Codec.Decode using YAML decoding.
func (c *YAMLCodec) Decode(r io.Reader, doc any) error {
	err := yaml.NewDecoder(r).Decode(doc)
	if err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}

// Extension implements Codec.Extension for YAML files.
func (c *YAMLCodec) Extension() string {
	return yamlExtension
}

// CodecFor picks the codec matching the extension of path.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case jsonExtension:
		return NewJSONCodec(), nil
	case yamlExtension, yamlAltExtension:
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// SaveFile encodes doc into path, choosing the codec by extension.
func SaveFile(path string, doc any) (err error) {
	codec, err := CodecFor(path)
	if err != nil {
		return err
	}

	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	defer func() {
		closeErr := file.Close()
		if closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()

	err = codec.Encode(file, doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return nil
}

// LoadFile decodes path into doc, choosing the codec by extension.
// doc must be a pointer.
func LoadFile(path string, doc any) error {
	codec, err := CodecFor(path)
	if err != nil {
		return err
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	err = codec.Decode(file, doc)
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	return nil
}
