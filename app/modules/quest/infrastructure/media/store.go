package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// allowedExt are the upload extensions kept as-is; anything else is stored as .jpg.
var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// RefPrefix marks media references that name a file written by LocalStore.
// Any other reference is a Telegram file id.
const RefPrefix = "local:"

// IsLocalRef reports whether ref was produced by LocalStore.Save.
func IsLocalRef(ref string) bool {
	return strings.HasPrefix(ref, RefPrefix)
}

// LocalStore writes raw proof uploads under a directory. Saved files are
// referenced as "local:<name>" and only resolve inside that directory.
type LocalStore struct {
	dir string
	now func() time.Time
}

// NewLocalStore creates a store rooted at dir. The directory is created on
// first save.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{dir: dir, now: time.Now}
}

// Save copies r into team{T}_cp{C}_{unix}_{uuid8}{ext} and returns its
// media reference.
func (s *LocalStore) Save(ctx context.Context, teamID int64, orderNum int, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	name := FileName(teamID, orderNum, s.now().Unix(), originalName)
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close media file: %w", err)
	}
	return RefPrefix + name, nil
}

// Resolve maps a local reference onto its file path. References that are not
// local, or whose name would leave the store directory, do not resolve.
func (s *LocalStore) Resolve(ref string) (string, bool) {
	if !IsLocalRef(ref) {
		return "", false
	}
	name := strings.TrimPrefix(ref, RefPrefix)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", false
	}
	return filepath.Join(s.dir, name), true
}

// Remove deletes the file behind a local reference. Missing files are not an
// error.
func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, ok := s.Resolve(ref)
	if !ok {
		return fmt.Errorf("not a local media reference: %q", ref)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}

// FileName builds the stored name for an upload.
func FileName(teamID int64, orderNum int, unix int64, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt[ext] {
		ext = ".jpg"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("team%d_cp%d_%d_%s%s", teamID, orderNum, unix, id, ext)
}
