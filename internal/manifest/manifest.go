// Package manifest provides YAML syntax checking and canonical
// re-serialization for submitted Kubernetes manifests. Both functions are pure
// over their input string.
package manifest

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidateSyntax reports whether text parses as YAML. Multi-document inputs
// are checked document by document. On failure the second return value carries
// the parser's error message.
func ValidateSyntax(text string) (bool, string) {
	_, err := parseDocuments(text)
	if err != nil {
		return false, err.Error()
	}
	return true, ""
}

// Normalize re-serializes text into a canonical form: block style, two-space
// indentation, key order preserved. Downstream tools therefore see stable
// formatting regardless of the submitter's indentation or quoting choices.
// If text does not parse, it is returned unchanged; callers are expected to
// have run ValidateSyntax first.
func Normalize(text string) string {
	docs, err := parseDocuments(text)
	if err != nil || len(docs) == 0 {
		return text
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		blockStyle(doc)
		if err := enc.Encode(doc); err != nil {
			return text
		}
	}
	if err := enc.Close(); err != nil {
		return text
	}
	return buf.String()
}

// blockStyle clears the recorded style on every node in the tree so the
// encoder emits plain block YAML. Without this, flow-style input ({a: b})
// round-trips as flow style.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}

// parseDocuments decodes every document in text into a yaml.Node tree.
// Node trees (rather than map[string]any) keep the author's key order.
func parseDocuments(text string) ([]*yaml.Node, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var docs []*yaml.Node
	for {
		var node yaml.Node
		err := dec.Decode(&node)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, &node)
	}
}
