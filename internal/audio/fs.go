package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/recall/internal/checksum"
)

// FS implements Store backed by the local file system.
type FS struct {
	root    string // absolute path to audio directory
	baseURL string // URL prefix refs are served under
}

// NewFS creates an FS store rooted at dir, creating it when missing.
// baseURL is the route prefix the API serves recordings from.
func NewFS(dir, baseURL string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("audio: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("audio: create root: %w", err)
	}
	return &FS{root: abs, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root returns the absolute directory recordings are kept in.
func (f *FS) Root() string { return f.root }

// safePath resolves a ref against the root and rejects any result that
// escapes it.
func (f *FS) safePath(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("audio: empty ref")
	}
	cleaned := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("audio: absolute refs not allowed: %s", ref)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("audio: resolve ref: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("audio: ref escapes root: %s", ref)
	}
	return abs, nil
}

// Put streams r into a temp file, fsyncs, then renames it into place.
func (f *FS) Put(_ context.Context, ref string, r io.Reader, contentType string) (Object, error) {
	abs, err := f.safePath(ref)
	if err != nil {
		return Object{}, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Object{}, fmt.Errorf("audio: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".recall-tmp-*")
	if err != nil {
		return Object{}, fmt.Errorf("audio: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	cr := checksum.NewReader(r)
	if _, err := io.Copy(tmp, cr); err != nil {
		return Object{}, fmt.Errorf("audio: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return Object{}, fmt.Errorf("audio: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("audio: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return Object{}, fmt.Errorf("audio: rename: %w", err)
	}
	success = true

	if contentType == "" {
		contentType = ContentType(ref)
	}
	return Object{
		Ref:         ref,
		URL:         f.URL(ref),
		Size:        cr.Size(),
		Checksum:    cr.Sum(),
		ContentType: contentType,
	}, nil
}

// Open returns the stored file for reading.
func (f *FS) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	abs, err := f.safePath(ref)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", ref, err)
	}
	return file, nil
}

// Delete removes a stored file.
func (f *FS) Delete(_ context.Context, ref string) error {
	abs, err := f.safePath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return fmt.Errorf("audio: delete %s: %w", ref, err)
	}
	return nil
}

// URL returns the API path a recording is served under.
func (f *FS) URL(ref string) string {
	return f.baseURL + "/" + strings.TrimPrefix(ref, "/")
}
