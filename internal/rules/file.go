package rules

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a rule file. The format follows the extension: .yaml/.yml
// or .cue. Both share the shape
//
//	separator: "_"
//	collapse: [" ", "-"]
//	terms: {"&": "and"}
//	unicode_form: "NFC"
//
// An omitted separator falls back to DefaultSeparator.
func LoadFile(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}

	var r Rules
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		r, err = decodeYAML(data)
	case ".cue":
		r, err = decodeCUE(path, data)
	default:
		return Rules{}, fmt.Errorf("unsupported rules file extension %q", ext)
	}
	if err != nil {
		return Rules{}, fmt.Errorf("%s: %w", path, err)
	}

	if r.Separator == "" {
		r.Separator = DefaultSeparator
	}
	if r.Terms == nil {
		r.Terms = map[string]string{}
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func decodeYAML(data []byte) (Rules, error) {
	var r Rules
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && err != io.EOF {
		return Rules{}, fmt.Errorf("decode yaml: %w", err)
	}
	return r, nil
}

func decodeCUE(path string, data []byte) (Rules, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return Rules{}, fmt.Errorf("compile cue: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Rules{}, fmt.Errorf("validate cue: %w", err)
	}

	var r Rules
	if err := v.Decode(&r); err != nil {
		return Rules{}, fmt.Errorf("decode cue: %w", err)
	}
	return r, nil
}

// WriteYAML exports a rule set in the format LoadFile reads.
func WriteYAML(w io.Writer, r Rules) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
