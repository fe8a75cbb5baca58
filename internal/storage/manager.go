package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"vetrian/internal/utils"
	"vetrian/pkg/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

// Manager applies upload policies and routes files to their backend. It
// implements the registration engines' Files collaborator.
type Manager struct {
	logger   logrus.FieldLogger
	primary  string
	backends map[string]FileStore
	now      func() time.Time
}

// NewManager wires the backend used for ordinary uploads plus an optional
// inline backend for in-memory policies.
func NewManager(logger logrus.FieldLogger, primaryName string, primary FileStore, inline FileStore) *Manager {
	backends := map[string]FileStore{primaryName: primary}
	if inline != nil {
		backends[BackendDatabase] = inline
	}

	return &Manager{
		logger:   logger,
		primary:  primaryName,
		backends: backends,
		now:      time.Now,
	}
}

func (m *Manager) Primary() string {
	return m.primary
}

// Store validates and persists one uploaded file.
func (m *Manager) Store(ctx context.Context, policy *types.UploadPolicy, fh *multipart.FileHeader) (*types.Attachment, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !slices.Contains(policy.Extensions, ext) {
		return nil, types.NewValidationFailed(
			fmt.Sprintf("Only %s files are allowed", allowedList(policy.Extensions)),
			[]string{policy.Field},
		)
	}

	if fh.Size > policy.MaxBytes {
		return nil, types.NewValidationFailed(
			fmt.Sprintf("File too large, the limit is %d MB", policy.MaxBytes>>20),
			[]string{policy.Field},
		)
	}

	file, err := fh.Open()
	if err != nil {
		return nil, types.NewInvalidRequest("Could not read uploaded file")
	}
	defer file.Close()

	contentType, err := sniff(file, policy.ContentTypes)
	if err != nil {
		return nil, types.NewValidationFailed(err.Error(), []string{policy.Field})
	}

	name := fmt.Sprintf("%s-%d-%s%s", policy.Field, m.now().UnixMilli(), utils.RandomDigits(9), ext)
	att := &types.Attachment{
		Field:        policy.Field,
		OriginalName: filepath.Base(fh.Filename),
		StoredName:   name,
		Key:          path.Join(policy.Dir, name),
		Backend:      m.primary,
		ContentType:  contentType,
		Size:         fh.Size,
		UploadedAt:   m.now(),
	}

	var body io.Reader = file
	if policy.InMemory {
		data, err := utils.ReadAllLimit(file, policy.MaxBytes)
		if err != nil {
			if errors.Is(err, utils.ErrTooLarge) {
				return nil, types.NewValidationFailed("File too large", []string{policy.Field})
			}
			return nil, types.NewInvalidRequest("Could not read uploaded file")
		}
		body = bytes.NewReader(data)
		att.Size = int64(len(data))
		if _, ok := m.backends[BackendDatabase]; ok {
			att.Backend = BackendDatabase
		}
	}

	if err := m.backends[att.Backend].Save(ctx, att.Key, body, att.Size, att.ContentType); err != nil {
		m.logger.WithError(err).WithField("key", att.Key).WithField("backend", att.Backend).Error("failed to store upload")
		return nil, types.NewUnavailable("Could not store uploaded file", err)
	}

	return att, nil
}

func (m *Manager) backend(att *types.Attachment) (FileStore, error) {
	b, ok := m.backends[att.Backend]
	if !ok {
		return nil, fmt.Errorf("no storage backend %q", att.Backend)
	}
	return b, nil
}

func (m *Manager) Release(ctx context.Context, att *types.Attachment) error {
	b, err := m.backend(att)
	if err != nil {
		return err
	}
	return b.Remove(ctx, att.Key)
}

func (m *Manager) Open(ctx context.Context, att *types.Attachment) (io.ReadCloser, error) {
	b, err := m.backend(att)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, att.Key)
}

// sniff detects the content type from the file's leading bytes and rewinds it.
func sniff(file multipart.File, allowed []string) (string, error) {
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("could not detect file type")
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("could not rewind uploaded file")
	}

	for _, ct := range allowed {
		if detected.Is(ct) {
			return ct, nil
		}
	}

	return "", fmt.Errorf("file type %s is not allowed", detected.String())
}

func allowedList(exts []string) string {
	names := make([]string, len(exts))
	for i, e := range exts {
		names[i] = strings.ToUpper(strings.TrimPrefix(e, "."))
	}
	return strings.Join(names, "/")
}
