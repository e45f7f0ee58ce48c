package scoring

// ============================================================================
// DOM Signature
// Responsibility: content-hash the structural shape of a page's interactive
// elements so that meaningful state change between actions can be detected.
// ============================================================================

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// DOMElement is one interactive element reported by an execution backend.
type DOMElement struct {
	Tag      string `json:"tag"`
	Selector string `json:"selector"`
}

// DOMDocument is the element inventory of a page.
type DOMDocument struct {
	Elements []DOMElement `json:"elements"`
}

// DOMSignature computes a stable MD5 hash over the document's element set.
// Element order does not affect the result; any change to the set of
// tag/selector pairs does.
func DOMSignature(doc DOMDocument) string {
	pairs := make([]string, 0, len(doc.Elements))
	for _, el := range doc.Elements {
		pairs = append(pairs, fmt.Sprintf("%s:%s", el.Tag, el.Selector))
	}
	sort.Strings(pairs)

	sum := md5.Sum([]byte(strings.Join(pairs, "|")))
	return hex.EncodeToString(sum[:])
}
