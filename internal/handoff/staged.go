package handoff

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotFound is returned when no record matches a key or prefix.
var ErrNotFound = errors.New("handoff: staged image not found")

// StagedImage is a named, encoded image payload.
type StagedImage struct {
	// Name is the declared file name, e.g. "photo.jpg".
	Name string `json:"name"`

	// Data is a base64 data URI: "data:<mime>;base64,<payload>".
	Data string `json:"data"`
}

// NewStagedImage wraps raw encoded bytes. An empty mime type is sniffed from
// the content.
func NewStagedImage(name, mime string, raw []byte) StagedImage {
	if mime == "" {
		mime = http.DetectContentType(raw)
	}
	return StagedImage{
		Name: name,
		Data: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw),
	}
}

// Decode returns the raw bytes and mime type carried by the data URI.
func (s StagedImage) Decode() ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s.Data, "data:")
	if !ok {
		return nil, "", fmt.Errorf("staged image %q: data is not a data URI", s.Name)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("staged image %q: malformed data URI", s.Name)
	}
	mime, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("staged image %q: data URI is not base64", s.Name)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("staged image %q: failed to decode payload: %w", s.Name, err)
	}
	return raw, mime, nil
}

// MimeType returns the mime type declared by the data URI, or "".
func (s StagedImage) MimeType() string {
	rest, ok := strings.CutPrefix(s.Data, "data:")
	if !ok {
		return ""
	}
	header, _, _ := strings.Cut(rest, ",")
	mime, _, _ := strings.Cut(header, ";")
	return mime
}

// Empty reports whether the record carries no payload.
func (s StagedImage) Empty() bool {
	_, payload, _ := strings.Cut(s.Data, ",")
	return payload == ""
}

func marshalRecord(img StagedImage) ([]byte, error) {
	b, err := json.Marshal(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode staged image: %w", err)
	}
	return b, nil
}

func unmarshalRecord(b []byte) (StagedImage, error) {
	var img StagedImage
	if err := json.Unmarshal(b, &img); err != nil {
		return StagedImage{}, fmt.Errorf("failed to decode staged image: %w", err)
	}
	return img, nil
}

// Store is the staging area shared by pipeline steps.
type Store interface {
	// Get returns the record under the exact key.
	Get(ctx context.Context, key string) (StagedImage, error)

	// Put stores img under key, replacing any previous record atomically.
	Put(ctx context.Context, key string, img StagedImage) error

	// Find returns the first record, in key order, whose key starts with
	// prefix, together with its key.
	Find(ctx context.Context, prefix string) (string, StagedImage, error)

	// List returns the keys starting with prefix in key order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the record under key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}

// Open returns a Store for the named driver: "memory" or "sqlite".
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if path == "" {
			return nil, errors.New("handoff: sqlite store requires a path")
		}
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("handoff: unknown store driver %q", driver)
	}
}
