package blob

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var pdfSample = []byte("%PDF-1.4\n1 0 obj\n<< >>\nendobj\ntrailer\n<< >>\n%%EOF\n")

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPutGetRoundtrip(t *testing.T) {
	s := newStore(t)
	name, err := s.Put(pdfSample)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasSuffix(name, ".pdf") {
		t.Fatalf("expected .pdf extension, got %s", name)
	}
	data, mime, err := s.Get(name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(data, pdfSample) {
		t.Fatalf("roundtrip bytes differ")
	}
	if mime != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", mime)
	}
	if !s.Exists(name) {
		t.Fatalf("expected document to exist")
	}
}

func TestPutRejectsUnsupportedType(t *testing.T) {
	s := newStore(t)
	_, err := s.Put([]byte{0x7f, 'E', 'L', 'F', 0, 0, 0, 0})
	var ue UnsupportedTypeError
	if !errors.As(err, &ue) {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func TestPutRejectsOversized(t *testing.T) {
	s := newStore(t)
	big := make([]byte, MaxDocumentBytes+1)
	copy(big, pdfSample)
	_, err := s.Put(big)
	var te TooLargeError
	if !errors.As(err, &te) {
		t.Fatalf("expected too large error, got %v", err)
	}
	if te.Size != int64(len(big)) {
		t.Fatalf("expected reported size %d, got %d", len(big), te.Size)
	}
}

func TestGetRejectsTraversal(t *testing.T) {
	s := newStore(t)
	for _, name := range []string{"", "../etc/passwd", "a/b.pdf", "../../x"} {
		if _, _, err := s.Get(name); err == nil {
			t.Fatalf("expected rejection for %q", name)
		}
		if s.Exists(name) {
			t.Fatalf("expected Exists false for %q", name)
		}
	}
}
