package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// EncodeGraph serialises nodes (as produced by Snapshot) into an opaque
// binary blob auxiliary tooling can reload with DecodeGraph. gob is
// deterministic for a fixed struct shape and input slice order, which
// Snapshot guarantees by walking the tree in creation order.
func EncodeGraph(nodes []NodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(nodes); err != nil {
		return nil, fmt.Errorf("store: encoding execution graph: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeGraph reverses EncodeGraph.
func DecodeGraph(data []byte) ([]NodeRecord, error) {
	var nodes []NodeRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("store: decoding execution graph: %w", err)
	}
	return nodes, nil
}
