// Package docmeta encodes and decodes the small JSON payload carried in
// VectorDocument.metadata (spec §3): the chunk attributes that aren't
// already a dedicated store column. VectorStore itself treats the field
// as opaque; this codec is the one place both the writer (pkg/indexer)
// and the reader (pkg/searcher) agree on its shape.
package docmeta

import "encoding/json"

// Payload is metadata's decoded shape.
type Payload struct {
	Language string `json:"language"`
	NodeKind string `json:"nodeKind"`
}

// Encode serialises a Payload. Marshal only fails on cyclic/unsupported
// types, neither possible here, so a failure degrades to "{}" rather than
// propagating an error a caller has no useful way to handle.
func Encode(language, nodeKind string) string {
	data, err := json.Marshal(Payload{Language: language, NodeKind: nodeKind})
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Decode parses raw back into a Payload. Malformed or empty input decodes
// to the zero Payload rather than failing: a document's metadata is
// auxiliary display data, not something a read path should error out over.
func Decode(raw string) Payload {
	var p Payload
	_ = json.Unmarshal([]byte(raw), &p)
	return p
}
