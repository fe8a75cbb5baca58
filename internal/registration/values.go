package registration

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"vetrian/internal/utils"
	"vetrian/pkg/types"

	"github.com/go-playground/validator/v10"
)

const (
	accessFull     = "Full Access"
	accessFlexible = "Flexible Access"

	accessFullStored     = "Full Access (One-time payment)"
	accessFlexibleStored = "Flexible Access (Installment / Due-based option)"

	dateLayout    = "2006-01-02"
	dayFirstDates = "02/01/2006"
)

var (
	alphaSpacePattern = regexp.MustCompile(`^[A-Za-z\s]+$`)
	mobilePattern     = regexp.MustCompile(`^[6-9]\d{9}$`)

	acceptedDateLayouts = []string{dateLayout, time.RFC3339, dayFirstDates}
)

// MapAccessPreference translates the two user-facing access choices into
// their stored descriptions. Other values pass through unchanged.
func MapAccessPreference(choice string) string {
	switch strings.TrimSpace(choice) {
	case accessFull:
		return accessFullStored
	case accessFlexible:
		return accessFlexibleStored
	}
	return choice
}

// CanonicalEmail trims and lower-cases an email address.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ParseBool accepts the truthy spellings browsers and JSON clients send.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "on", "yes", "1":
		return true
	}
	return false
}

func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

// newValidator registers the custom format rules used by the descriptors.
func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
		return alphaSpacePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("mobile_in", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("within_year", func(fl validator.FieldLevel) bool {
		date, err := time.Parse(dayFirstDates, fl.Field().String())
		if err != nil {
			return false
		}
		today := now().Truncate(24 * time.Hour)
		return !date.Before(today) && !date.After(today.AddDate(1, 0, 0))
	})

	return v
}

// checkFormats validates every present field against the descriptor's
// rules, enums and date fields and returns one message per problem.
func checkFormats(v *validator.Validate, d *Descriptor, values types.FormValues) ([]string, []string) {
	var fields, problems []string

	for _, field := range d.Fields {
		value := strings.TrimSpace(values.Get(field))
		if value == "" {
			continue
		}

		if tag, ok := d.Rules[field]; ok {
			if err := v.Var(value, tag); err != nil {
				fields = append(fields, field)
				problems = append(problems, formatRuleError(field, err))
				continue
			}
		}

		if domain, ok := d.Enums[field]; ok && !slices.Contains(domain, value) {
			fields = append(fields, field)
			problems = append(problems, fmt.Sprintf("%s must be one of: %s", field, strings.Join(domain, ", ")))
			continue
		}

		if slices.Contains(d.DateFields, field) {
			if _, err := parseDate(value); err != nil {
				fields = append(fields, field)
				problems = append(problems, fmt.Sprintf("%s is not a valid date", field))
				continue
			}
		}

		if slices.Contains(d.NumFields, field) {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				fields = append(fields, field)
				problems = append(problems, fmt.Sprintf("%s must be a number", field))
			}
		}
	}

	return fields, problems
}

func formatRuleError(field string, err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return fmt.Sprintf("%s is invalid", field)
	}

	switch fe := errs[0]; fe.Tag() {
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "mobile_in":
		return fmt.Sprintf("%s must be a 10-digit number starting with 6-9", field)
	case "alphaspace":
		return fmt.Sprintf("%s can only contain letters and spaces", field)
	case "within_year":
		return fmt.Sprintf("%s must be a DD/MM/YYYY date between today and one year from now", field)
	case "min", "max":
		return fmt.Sprintf("%s must be between the allowed lengths (%s %s)", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// missingRequired lists the descriptor's required fields that are blank.
func missingRequired(d *Descriptor, values types.FormValues) []string {
	var missing []string
	for _, field := range d.Required {
		if strings.TrimSpace(values.Get(field)) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// applyValues merges values onto rec. Blank values never overwrite. admin
// enables the back-office fields; the public flows pass false.
func applyValues(d *Descriptor, rec *types.Registrant, values types.FormValues, admin bool) error {
	if rec.Fields == nil {
		rec.Fields = types.Fields{}
	}

	var invalid []string
	for key, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		if !d.Allows(key) && !(admin && d.AllowsAdmin(key)) {
			continue
		}

		switch key {
		case "email":
			rec.Email = CanonicalEmail(value)
			continue
		case "phone":
			rec.Phone = utils.StringPtr(value)
			continue
		case "rollNumber":
			rec.RollNumber = utils.StringPtr(value)
			continue
		case "referralCode":
			if d.ReferralBearing {
				rec.ReferralCode = utils.StringPtr(CanonicalReferralCode(value))
				continue
			}
		case "status":
			if !slices.Contains(d.StatusesFor(rec.Stage), value) {
				invalid = append(invalid, "status")
				continue
			}
			rec.Status = value
			continue
		case "notes":
			rec.Notes = value
			continue
		case "totalCost", "amountPaid":
			amount, err := strconv.ParseFloat(value, 64)
			if err != nil || amount < 0 {
				invalid = append(invalid, key)
				continue
			}
			if key == "totalCost" {
				rec.TotalCost = utils.RoundFloat64(amount, 2)
			} else {
				rec.AmountPaid = utils.RoundFloat64(amount, 2)
			}
			continue
		}

		switch {
		case slices.Contains(d.BoolFields, key):
			rec.Fields[key] = ParseBool(value)
		case slices.Contains(d.NumFields, key):
			n, err := strconv.ParseFloat(value, 64)
			if err != nil {
				invalid = append(invalid, key)
				continue
			}
			rec.Fields[key] = n
		case slices.Contains(d.DateFields, key):
			t, err := parseDate(value)
			if err != nil {
				invalid = append(invalid, key)
				continue
			}
			rec.Fields[key] = t.Format(dateLayout)
		default:
			rec.Fields[key] = value
		}

		if key == "accessPreference" && d.AccessField != "" {
			rec.Fields[d.AccessField] = MapAccessPreference(value)
		}
	}

	if len(invalid) > 0 {
		slices.Sort(invalid)
		return types.NewValidationFailed("invalid values for: "+strings.Join(invalid, ", "), invalid)
	}

	return nil
}

// applyDefaults fills absent fields on a newly created record.
func applyDefaults(d *Descriptor, rec *types.Registrant) {
	for key, value := range d.Defaults {
		if _, ok := rec.Fields[key]; !ok {
			rec.Fields[key] = value
		}
	}
}

// valueOf reads a natural key or bag field off a record as a string.
func valueOf(rec *types.Registrant, field string) string {
	switch field {
	case "email":
		return rec.Email
	case "phone":
		return utils.PtrString(rec.Phone)
	case "rollNumber":
		return utils.PtrString(rec.RollNumber)
	case "generatedReferralCode":
		return utils.PtrString(rec.GeneratedReferralCode)
	}
	if v, ok := rec.Fields[field]; ok {
		return fmt.Sprint(v)
	}
	return ""
}
