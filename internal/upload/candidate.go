package upload

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Candidate is a user-submitted file prior to recognition. Transient:
// created on selection, discarded after validation or consumed by the
// recognition adapter.
type Candidate struct {
	Filename  string
	MediaType string
	Size      int64
	Data      []byte
}

// FromReader drains r into a Candidate. The declared media type is taken
// as-is; validation decides whether it is acceptable.
func FromReader(filename, mediaType string, r io.Reader) (Candidate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Candidate{}, fmt.Errorf("read upload %q: %w", filename, err)
	}
	return Candidate{
		Filename:  filepath.Base(filename),
		MediaType: strings.TrimSpace(mediaType),
		Size:      int64(len(data)),
		Data:      data,
	}, nil
}

// FromFile builds a Candidate from a local path, inferring the media type
// from the file extension. Used by the CLI; the HTTP path takes the type
// from the multipart part header instead.
func FromFile(path string) (Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("read file %q: %w", path, err)
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return Candidate{
		Filename:  filepath.Base(path),
		MediaType: strings.TrimSpace(mediaType),
		Size:      int64(len(data)),
		Data:      data,
	}, nil
}
