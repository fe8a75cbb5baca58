package server

import (
	"net/http"

	"vetrian/internal/registration"
	"vetrian/pkg/types"
)

// Participant routes keep the response shapes the IdeaForge client reads.

func (s *Service) handleParticipantRegister(d *registration.Descriptor) http.HandlerFunc {
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
			"message":       "Registration successful!",
			"participantId": rec.ID,
		}
		if rec.GeneratedReferralCode != nil {
			body["referralCode"] = *rec.GeneratedReferralCode
		}

		s.created(w, body)
	}
}

func (s *Service) handleParticipants(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := s.registrations.Records.List(r.Context(), d.Type, types.StageFinal)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, envelope{
			"success":      true,
			"count":        len(records),
			"participants": records,
		})
	}
}

func (s *Service) handleParticipant(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.registrations.Records.Get(r.Context(), d.Type, types.StageFinal, r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, participantError(err))
			return
		}

		s.writeJSON(w, http.StatusOK, envelope{"success": true, "participant": rec})
	}
}

func (s *Service) handleParticipantUpdate(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values, upload, cleanup, err := s.readSubmission(w, r, d)
		defer cleanup()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		rec, err := s.registrations.Records.Update(r.Context(), d.Type, types.StageFinal, r.PathValue("id"), values, upload)
		if err != nil {
			s.writeError(w, r, participantError(err))
			return
		}

		s.writeJSON(w, http.StatusOK, envelope{
			"success":     true,
			"message":     "Participant updated successfully",
			"participant": rec,
		})
	}
}

func (s *Service) handleParticipantDelete(d *registration.Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.registrations.Records.Delete(r.Context(), d.Type, types.StageFinal, r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, participantError(err))
			return
		}

		s.writeJSON(w, http.StatusOK, envelope{
			"success":     true,
			"message":     "Participant deleted successfully",
			"participant": rec,
		})
	}
}

// handleVerifyReferral always answers 200 for malformed or unknown codes;
// only a store failure is an error.
func (s *Service) handleVerifyReferral(w http.ResponseWriter, r *http.Request) {
	result, err := s.registrations.Referrals.Verify(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func participantError(err error) error {
	switch {
	case types.IsKind(err, types.KindNotFound):
		return types.NewNotFound("Participant not found")
	case types.IsKind(err, types.KindInvalidID):
		return &types.Error{Kind: types.KindInvalidID, Message: "Invalid participant ID"}
	}
	return err
}
