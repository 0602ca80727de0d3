package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/aman-cerp/codesearch/internal/docmeta"
	"github.com/aman-cerp/codesearch/pkg/chunk"
)

// docNamespace is this module's fixed UUID-v5 namespace. spec.md §3 only
// requires determinism (the same relative_path + line span + content
// always yields the same id); the namespace constant itself is an
// implementation choice, generated once and never changed.
var docNamespace = uuid.MustParse("d2e16f2c-7b3a-4f1e-9c3b-5a9e3a7d9b11")

// documentID derives the spec §3 VectorDocument id:
// UUID-v5(relative_path + start_line + end_line + content_hash).
func documentID(relPath string, startLine, endLine int, content string) string {
	sum := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(sum[:])
	data := fmt.Sprintf("%s:%d:%d:%s", relPath, startLine, endLine, contentHash)
	return uuid.NewSHA1(docNamespace, []byte(data)).String()
}

func encodeMetadata(c chunk.Unit) string {
	return docmeta.Encode(c.Language, c.NodeKind)
}
