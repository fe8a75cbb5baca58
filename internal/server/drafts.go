package server

import (
	"net/http"

	"vetrian/internal/registration"
	"vetrian/pkg/types"
)

type draftQuery struct {
	Email string `form:"email"`
}

func (s *Service) handleDraftSave(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, upload, cleanup, err := s.readSubmission(w, r, d)
		defer cleanup()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		rec, err := s.registrations.Drafts.Save(r.Context(), d.Type, values.Get("email"), values, upload)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.ok(w, "Partial data saved successfully", registration.Acknowledge(d, rec))
	}
}

// handleDraftData returns the draft for ?email= or, without it, every draft.
func (s *Service) handleDraftData(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var query draftQuery
		if err := decoder.Decode(&query, r.URL.Query()); err != nil {
			s.logger.WithError(err).Error("failed to decode draft query")
			s.writeError(w, r, types.NewInvalidRequest("Invalid query"))
			return
		}

		if query.Email == "" {
			s.handleList(d, types.StageDraft)(w, r)
			return
		}

		rec, err := s.registrations.Records.DraftByEmail(r.Context(), d.Type, query.Email)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.ok(w, "", rec)
	}
}
