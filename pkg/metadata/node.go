// Package metadata models schema snapshots: the tree of element and
// field nodes an upstream exporter produces for a customer instance,
// stored as versioned JSON documents.
package metadata

import (
	"encoding/json"
	"io"

	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// Node kinds as they appear in snapshot documents.
const (
	KindElement = "element"
	KindField   = "field"
)

// Node is one node of a schema snapshot tree. Elements establish an
// entity; fields carry the validation attributes.
type Node struct {
	Tag         string            `json:"tag"`
	TechnicalID string            `json:"technical_id"`
	Kind        string            `json:"node_type"`
	Attributes  map[string]string `json:"attributes"`
	Children    []*Node           `json:"children,omitempty"`
}

// Attr returns an attribute value or "" when absent.
func (n *Node) Attr(key string) string {
	if n.Attributes == nil {
		return ""
	}
	return n.Attributes[key]
}

// ID returns the node's identifier: the technical id when set,
// otherwise the id attribute.
func (n *Node) ID() string {
	if n.TechnicalID != "" {
		return n.TechnicalID
	}
	return n.Attr("id")
}

// Snapshot is a versioned schema document.
type Snapshot struct {
	InstanceID string `json:"instance_id"`
	Version    string `json:"version"`
	Root       *Node  `json:"root"`
}

// Decode reads a snapshot document from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, verrors.Wrap(err, verrors.CodeSnapshotDecode, "decode snapshot document")
	}
	if s.Root == nil {
		return nil, verrors.New(verrors.CodeSnapshotDecode, "snapshot document has no root node")
	}
	return &s, nil
}

// Encode writes the snapshot document to w.
func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return verrors.Wrap(err, verrors.CodeWriteFailed, "encode snapshot document")
	}
	return nil
}

// Walk visits every node depth-first. The parent element identifier in
// effect when a node is visited is threaded through the traversal:
// visiting an element node changes it for the nodes that follow, so
// field nodes bind to the nearest element seen before them whether
// they are children or later siblings of it.
func (s *Snapshot) Walk(visit func(n *Node, parentElement string) string) {
	var walk func(n *Node, parent string) string
	walk = func(n *Node, parent string) string {
		parent = visit(n, parent)
		for _, child := range n.Children {
			parent = walk(child, parent)
		}
		return parent
	}
	if s.Root != nil {
		walk(s.Root, "")
	}
}
