package blob

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxDocumentBytes caps uploaded document size.
const MaxDocumentBytes = 500 * 1024

var allowedTypes = map[string]string{
	"application/pdf":    ".pdf",
	"application/msword": ".doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

// Store writes and reads lifecycle documents under a single directory.
// Stored names are opaque; callers keep the returned path.
type Store struct {
	Dir string
}

func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("document dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{Dir: dir}, nil
}

type TooLargeError struct {
	Size int64
}

func (e TooLargeError) Error() string {
	return fmt.Sprintf("document is %d bytes, limit is %d", e.Size, MaxDocumentBytes)
}

type UnsupportedTypeError struct {
	MIME string
}

func (e UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported document type %s", e.MIME)
}

// Put validates size and content type, then persists the payload under a
// generated name. The MIME type is sniffed from content, never trusted
// from the caller.
func (s *Store) Put(data []byte) (string, error) {
	if int64(len(data)) > MaxDocumentBytes {
		return "", TooLargeError{Size: int64(len(data))}
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty document")
	}
	mtype := mimetype.Detect(data)
	ext, ok := allowedTypes[mtype.String()]
	if !ok {
		return "", UnsupportedTypeError{MIME: mtype.String()}
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// Get reads a stored document back. The name must be one returned by Put.
func (s *Store) Get(name string) ([]byte, string, error) {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return nil, "", fmt.Errorf("invalid document name")
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", os.ErrNotExist
		}
		return nil, "", err
	}
	return data, mimetype.Detect(data).String(), nil
}

// Exists reports whether a stored document is present.
func (s *Store) Exists(name string) bool {
	if name == "" || strings.Contains(name, "/") {
		return false
	}
	_, err := os.Stat(filepath.Join(s.Dir, name))
	return err == nil
}
