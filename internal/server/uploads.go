package server

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"vetrian/internal/intake"
	"vetrian/internal/registration"
	"vetrian/pkg/types"

	"github.com/alexedwards/flow"
)

const (
	// bodies without a file only carry form fields
	maxFormBytes = 1 << 20
	// multipart parts above this spill to temp files
	multipartMemory = 32 << 20
)

// bodyLimit caps the request body for a resource type, leaving room for
// the form fields that travel with the file.
func bodyLimit(d *registration.Descriptor) int64 {
	if d.Upload == nil {
		return maxFormBytes
	}
	return d.Upload.MaxBytes + maxFormBytes
}

// readSubmission parses the form fields and stores the accompanying file,
// if any. The caller must run the returned cleanup once done.
func (s *Service) readSubmission(w http.ResponseWriter, r *http.Request, d *registration.Descriptor) (types.FormValues, *types.Attachment, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit(d))

	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	values, err := intake.Parse(r, multipartMemory)
	if err != nil {
		return nil, nil, cleanup, err
	}

	if d.Upload == nil || r.MultipartForm == nil {
		return values, nil, cleanup, nil
	}

	files := r.MultipartForm.File[d.Upload.Field]
	if len(files) == 0 {
		return values, nil, cleanup, nil
	}

	att, err := s.uploads.Store(r.Context(), d.Upload, files[len(files)-1])
	if err != nil {
		if _, ok := types.AsError(err); !ok {
			err = types.NewUnavailable("failed to store uploaded file", err)
		}
		return nil, nil, cleanup, err
	}

	return values, att, cleanup, nil
}

// mountUploadDirs serves the disk upload directories read-only.
func (s *Service) mountUploadDirs(r *flow.Mux) error {
	seen := make(map[string]bool)

	for _, d := range s.registrations.Descriptors.Ordered() {
		if d.Upload == nil || d.Upload.InMemory || seen[d.Upload.Dir] {
			continue
		}
		seen[d.Upload.Dir] = true

		dir := filepath.Join(s.config.Storage.UploadRoot, d.Upload.Dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}

		prefix := "/" + d.Upload.Dir + "/"
		files := http.StripPrefix(prefix, http.FileServer(uploadDir{http.Dir(dir)}))
		r.Handle(prefix+"...", files, http.MethodGet)
	}

	return nil
}

// uploadDir refuses dotfiles and directory listings.
type uploadDir struct {
	http.FileSystem
}

func (d uploadDir) Open(name string) (http.File, error) {
	for _, part := range strings.Split(path.Clean(name), "/") {
		if strings.HasPrefix(part, ".") {
			return nil, fs.ErrPermission
		}
	}

	f, err := d.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fs.ErrNotExist
	}

	return f, nil
}
