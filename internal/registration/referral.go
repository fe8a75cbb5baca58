package registration

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"vetrian/internal/utils"
	"vetrian/pkg/types"
)

const (
	ReferralPrefix   = "VR"
	referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	maxReferralAttempts = 10
)

var referralPattern = regexp.MustCompile(`^VR-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Verification is the outcome of looking up a referral code. Unknown and
// malformed codes are reported here rather than as errors.
type Verification struct {
	Valid        bool   `json:"valid"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	ReferrerName string `json:"referrer,omitempty"`
	ReferrerID   string `json:"-"`
}

func CanonicalReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidReferralFormat is a structural check only; it does not consult the store.
func ValidReferralFormat(code string) bool {
	return referralPattern.MatchString(CanonicalReferralCode(code))
}

type ReferralCodes struct {
	lookup ReferralLookup
	sample func() (string, error)
}

func NewReferralCodes(lookup ReferralLookup) *ReferralCodes {
	return &ReferralCodes{
		lookup: lookup,
		sample: func() (string, error) {
			return utils.RandomFrom(referralAlphabet, 8)
		},
	}
}

// Candidate formats a fresh random code without checking the store.
func (g *ReferralCodes) Candidate() (string, error) {
	raw, err := g.sample()
	if err != nil {
		return "", fmt.Errorf("sample referral code: %w", err)
	}
	if len(raw) != 8 {
		return "", fmt.Errorf("sample referral code: got %d symbols", len(raw))
	}

	return fmt.Sprintf("%s-%s-%s", ReferralPrefix, raw[:4], raw[4:]), nil
}

// Generate returns a code no existing registrant owns, resampling on collision.
func (g *ReferralCodes) Generate(ctx context.Context) (string, error) {
	for range maxReferralAttempts {
		code, err := g.Candidate()
		if err != nil {
			return "", types.NewUnavailable("failed to generate referral code", err)
		}

		exists, err := g.lookup.ReferralCodeExists(ctx, code)
		if err != nil {
			return "", types.NewUnavailable("failed to check referral code", err)
		}

		if !exists {
			return code, nil
		}
	}

	return "", types.NewUnavailable("failed to generate referral code", fmt.Errorf("no free code after %d attempts", maxReferralAttempts))
}

// Claimed canonicalizes a code an applicant says they were given. It must be
// well formed and already issued to someone.
func (g *ReferralCodes) Claimed(ctx context.Context, code string) (string, error) {
	code = CanonicalReferralCode(code)
	if !ValidReferralFormat(code) {
		return "", types.NewValidationFailed("Referral code must be in format: VR-XXXX-XXXX", []string{"referralCode"})
	}

	exists, err := g.lookup.ReferralCodeExists(ctx, code)
	if err != nil {
		return "", types.NewUnavailable("failed to check referral code", err)
	}
	if !exists {
		return "", types.NewValidationFailed(fmt.Sprintf("Unknown referral code %s", code), []string{"referralCode"})
	}

	return code, nil
}

func (g *ReferralCodes) Verify(ctx context.Context, code string) (*Verification, error) {
	code = CanonicalReferralCode(code)
	result := &Verification{Code: code}

	if !ValidReferralFormat(code) {
		result.Message = "Invalid referral code format. Expected VR-XXXX-XXXX"
		return result, nil
	}

	referrer, err := g.lookup.Referrer(ctx, code)
	if err != nil {
		if errors.Is(err, types.ErrReferralCodeNotFound) {
			result.Message = "Referral code not found"
			return result, nil
		}
		return nil, types.NewUnavailable("failed to verify referral code", err)
	}

	result.Valid = true
	result.Message = "Valid referral code"
	result.ReferrerName = referrer.Name
	result.ReferrerID = referrer.RegistrantID

	return result, nil
}
