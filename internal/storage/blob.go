// Package storage is the blob-storage collaborator used for project
// attachments and submission files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"fyp-portal/internal/logutils"
	"fyp-portal/internal/models"

	"golang.org/x/net/webdav"
)

// BlobStore keeps uploaded files. Store and Delete are independent calls;
// callers get no transaction spanning them and a record write.
type BlobStore interface {
	Store(ctx context.Context, fileName string, r io.Reader) (models.Attachment, error)
	Delete(ctx context.Context, fileURL string) (bool, error)
}

const (
	defaultFilePerm   = 0o644
	defaultFolderPerm = 0o755
)

// DirStore keeps blobs under a local directory through webdav.Dir, which
// confines every path to the root.
type DirStore struct {
	fs      webdav.FileSystem
	baseURL string
	now     func() time.Time
}

func NewDirStore(root, baseURL string) (*DirStore, error) {
	if err := os.MkdirAll(root, defaultFolderPerm); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &DirStore{
		fs:      webdav.Dir(root),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

func (s *DirStore) Store(ctx context.Context, fileName string, r io.Reader) (models.Attachment, error) {
	name := sanitizeName(fileName)
	if name == "" {
		return models.Attachment{}, errors.New("file name is empty")
	}
	dir := "/" + s.now().UTC().Format("2006/01")
	if err := s.mkdirAll(ctx, dir); err != nil {
		return models.Attachment{}, err
	}
	key := path.Join(dir, models.NewID()+"-"+name)

	f, err := s.fs.OpenFile(ctx, key, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return models.Attachment{}, fmt.Errorf("open blob %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.RemoveAll(ctx, key)
		return models.Attachment{}, fmt.Errorf("write blob %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return models.Attachment{}, fmt.Errorf("close blob %s: %w", key, err)
	}

	return models.Attachment{FileURL: s.baseURL + key, FileName: name}, nil
}

// Delete removes the blob behind fileURL. It reports false for URLs this
// store does not own or that no longer exist.
func (s *DirStore) Delete(ctx context.Context, fileURL string) (bool, error) {
	if !strings.HasPrefix(fileURL, s.baseURL+"/") {
		return false, nil
	}
	key := strings.TrimPrefix(fileURL, s.baseURL)
	if _, err := s.fs.Stat(ctx, key); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.fs.RemoveAll(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

// Handler serves stored blobs read-only under the base URL.
func (s *DirStore) Handler() http.Handler {
	h := &webdav.Handler{
		Prefix:     s.baseURL,
		FileSystem: s.fs,
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				logutils.Log.WithField("path", r.URL.Path).Warn(err)
			}
		},
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "read-only", http.StatusMethodNotAllowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *DirStore) mkdirAll(ctx context.Context, dir string) error {
	cur := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		cur += "/" + part
		if _, err := s.fs.Stat(ctx, cur); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return err
		}
		if err := s.fs.Mkdir(ctx, cur, defaultFolderPerm); err != nil && !os.IsExist(err) {
			return err
		}
	}
	return nil
}

func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '/', r == ':', r == '*', r == '?', r == '"', r == '<', r == '>', r == '|':
			return '_'
		}
		return r
	}, name)
}
