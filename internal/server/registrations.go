package server

import (
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"vetrian/internal/intake"
	"vetrian/internal/registration"
	"vetrian/pkg/types"

	"github.com/sirupsen/logrus"
)

func (s *Service) handleSubmit(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, upload, cleanup, err := s.readSubmission(w, r, d)
		defer cleanup()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		rec, err := s.registrations.Finalizer.Submit(r.Context(), d.Type, values, upload)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		body := envelope{
			"message": d.Label + " registration successful",
			"data":    rec,
		}
		if rec.GeneratedReferralCode != nil {
			body["referralCode"] = *rec.GeneratedReferralCode
		}

		s.created(w, body)
	}
}

func (s *Service) handleList(d *registration.Descriptor, stage types.Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.registrations.Records.List(r.Context(), d.Type, stage)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, envelope{
			"success": true,
			"message": d.Label + " records fetched successfully",
			"count":   len(records),
			"data":    records,
		})
	}
}

func (s *Service) handleGet(d *registration.Descriptor, stage types.Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.registrations.Records.Get(r.Context(), d.Type, stage, r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.ok(w, "", rec)
	}
}

func (s *Service) handleUpdate(d *registration.Descriptor, stage types.Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, upload, cleanup, err := s.readSubmission(w, r, d)
		defer cleanup()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		rec, err := s.registrations.Records.Update(r.Context(), d.Type, stage, r.PathValue("id"), values, upload)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.ok(w, d.Label+" updated successfully", rec)
	}
}

func (s *Service) handleDelete(d *registration.Descriptor, stage types.Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.registrations.Records.Delete(r.Context(), d.Type, stage, r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.logger.WithFields(logrus.Fields{
			"resource": d.Type,
			"stage":    stage,
			"id":       rec.ID,
		}).Info("registrant deleted")

		s.ok(w, d.Label+" deleted successfully", nil)
	}
}

func (s *Service) handleCheckDuplicate(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

		values, err := intake.Parse(r, maxFormBytes)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		form := make(url.Values, len(values))
		for k, v := range values {
			form.Set(k, v)
		}

		var candidates registration.Candidates
		if err := decoder.Decode(&candidates, form); err != nil {
			s.logger.WithError(err).Error("failed to decode duplicate probe")
			s.writeError(w, r, types.NewInvalidRequest("Invalid request body"))
			return
		}

		result, err := s.registrations.Duplicates.Check(r.Context(), d.Type, types.StageFinal, candidates)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, envelope{
			"success":         true,
			"exists":          result.Exists,
			"duplicateFields": result.MatchedFields,
		})
	}
}

// handleAttachment streams the stored file inline.
func (s *Service) handleAttachment(d *registration.Descriptor, stage types.Stage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		att, body, err := s.registrations.Records.OpenAttachment(r.Context(), d.Type, stage, r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		defer body.Close()

		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": att.OriginalName}))
		if att.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(att.Size, 10))
		}

		if _, err := io.Copy(w, body); err != nil {
			s.logger.WithError(err).WithField("key", att.Key).Error("failed to stream attachment")
		}
	}
}
