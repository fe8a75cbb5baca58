package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"vetrian/internal/registration"
	"vetrian/internal/storage"
	"vetrian/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// Uploads persists and releases files accepted with a submission.
type Uploads interface {
	Store(ctx context.Context, policy *types.UploadPolicy, fh *multipart.FileHeader) (*types.Attachment, error)
	Release(ctx context.Context, att *types.Attachment) error
	Open(ctx context.Context, att *types.Attachment) (io.ReadCloser, error)
	Primary() string
}

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	logger        *logrus.Logger
	config        *types.Config
	registrations *registration.Service
	uploads       Uploads
	db            Pinger

	handler http.Handler
	server  *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	registrations *registration.Service,
	uploads Uploads,
	db Pinger,
) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger:        logger,
		config:        config,
		registrations: registrations,
		uploads:       uploads,
		db:            db,
	}

	if err := s.buildRouter(mux); err != nil {
		return nil, err
	}

	s.handler = s.buildHandler(mux)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.ServerPort),
		Handler:           s.handler,
		ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler is the fully wrapped router, exposed for tests.
func (s *Service) Handler() http.Handler {
	return s.handler
}

// buildHandler wraps the router in middleware that must also run for
// requests no route matches.
func (s *Service) buildHandler(mux *flow.Mux) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
	})

	return c.Handler(s.LoggingMiddleware(s.StripTrailingSlash(mux)))
}

func (s *Service) buildRouter(r *flow.Mux) error {
	r.NotFound = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowed = http.HandlerFunc(s.handleMethodNotAllowed)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/ping", s.handlePing, http.MethodGet)

	for _, d := range s.registrations.Descriptors.Ordered() {
		s.mountRegistrations(r, d)

		if d.Drafts {
			s.mountDrafts(r, d, d.Prefix, false)
			for _, alias := range d.DraftAliases {
				s.mountDrafts(r, d, alias, true)
			}
		}

		if d.ReferralBearing {
			s.mountParticipants(r, d)
		}
	}

	if s.config.Storage.Backend == storage.BackendDisk {
		return s.mountUploadDirs(r)
	}

	return nil
}

func (s *Service) mountRegistrations(r *flow.Mux, d *registration.Descriptor) {
	base := d.Prefix + "/registration"

	r.HandleFunc(base, s.handleSubmit(d), http.MethodPost)
	r.HandleFunc(base, s.handleList(d, types.StageFinal), http.MethodGet)
	r.HandleFunc(base+"/:id", s.handleGet(d, types.StageFinal), http.MethodGet)
	r.HandleFunc(base+"/:id", s.handleUpdate(d, types.StageFinal), http.MethodPut)
	r.HandleFunc(base+"/:id", s.handleDelete(d, types.StageFinal), http.MethodDelete)

	r.HandleFunc(d.Prefix+"/check-duplicate", s.handleCheckDuplicate(d), http.MethodPost)

	if d.Upload != nil {
		r.HandleFunc(d.Prefix+"/"+d.Upload.Field+"/:id", s.handleAttachment(d, types.StageFinal), http.MethodGet)
	}
}

// mountDrafts registers the draft routes under prefix. Aliases are
// draft-only prefixes, so the attachment route there serves drafts.
func (s *Service) mountDrafts(r *flow.Mux, d *registration.Descriptor, prefix string, alias bool) {
	r.HandleFunc(prefix+"/partial-save", s.handleDraftSave(d), http.MethodPost)
	r.HandleFunc(prefix+"/partial-data", s.handleDraftData(d), http.MethodGet)
	r.HandleFunc(prefix+"/partial-update/:id", s.handleUpdate(d, types.StageDraft), http.MethodPut)
	r.HandleFunc(prefix+"/partial-delete/:id", s.handleDelete(d, types.StageDraft), http.MethodDelete)

	if alias && d.Upload != nil {
		r.HandleFunc(prefix+"/"+d.Upload.Field+"/:id", s.handleAttachment(d, types.StageDraft), http.MethodGet)
	}
}

func (s *Service) mountParticipants(r *flow.Mux, d *registration.Descriptor) {
	r.HandleFunc(d.Prefix+"/register", s.handleParticipantRegister(d), http.MethodPost)
	r.HandleFunc(d.Prefix+"/participants", s.handleParticipants(d), http.MethodGet)
	r.HandleFunc(d.Prefix+"/participant/:id", s.handleParticipant(d), http.MethodGet)
	r.HandleFunc(d.Prefix+"/participants/:id", s.handleParticipantUpdate(d), http.MethodPut)
	r.HandleFunc(d.Prefix+"/participants/:id", s.handleParticipantDelete(d), http.MethodDelete)
	r.HandleFunc(d.Prefix+"/verify-referral/:code", s.handleVerifyReferral, http.MethodGet)
}
