package scoring

import "testing"

func TestDOMSignatureShape(t *testing.T) {
	doc := DOMDocument{Elements: []DOMElement{
		{Tag: "button", Selector: "#login"},
		{Tag: "input", Selector: "#username"},
	}}

	sig := DOMSignature(doc)
	if len(sig) != 32 {
		t.Errorf("signature length = %d, want 32 (md5 hex)", len(sig))
	}
}

func TestDOMSignatureStable(t *testing.T) {
	doc := DOMDocument{Elements: []DOMElement{
		{Tag: "button", Selector: "#login"},
	}}

	first := DOMSignature(doc)
	for i := 0; i < 5; i++ {
		if got := DOMSignature(doc); got != first {
			t.Fatalf("signature not stable: %s vs %s", got, first)
		}
	}
}

func TestDOMSignatureOrderIndependent(t *testing.T) {
	a := DOMDocument{Elements: []DOMElement{
		{Tag: "button", Selector: "#login"},
		{Tag: "input", Selector: "#username"},
	}}
	b := DOMDocument{Elements: []DOMElement{
		{Tag: "input", Selector: "#username"},
		{Tag: "button", Selector: "#login"},
	}}

	if DOMSignature(a) != DOMSignature(b) {
		t.Error("signature should not depend on element order")
	}
}

func TestDifferentDOMsDifferentSignatures(t *testing.T) {
	a := DOMDocument{Elements: []DOMElement{{Tag: "button", Selector: "#login"}}}
	b := DOMDocument{Elements: []DOMElement{{Tag: "input", Selector: "#username"}}}

	if DOMSignature(a) == DOMSignature(b) {
		t.Error("different element sets should produce different signatures")
	}
}
