package types

import (
	"encoding/json"
	"time"
)

type ResourceType string

const (
	ResourceCourse     ResourceType = "course"
	ResourceInternship ResourceType = "internship"
	ResourceRD         ResourceType = "rd"
	ResourceCareer     ResourceType = "career"
	ResourceIdeaForge  ResourceType = "ideaforge"
)

type Stage string

const (
	StageDraft Stage = "draft"
	StageFinal Stage = "final"
)

// FormValues is normalized request input: one non-empty string per field.
type FormValues map[string]string

// Get returns the value for key, "" when absent.
func (v FormValues) Get(key string) string {
	if v == nil {
		return ""
	}
	return v[key]
}

// Fields is the free-form document bag persisted as jsonb.
type Fields map[string]any

func (f Fields) String(key string) string {
	if s, ok := f[key].(string); ok {
		return s
	}
	return ""
}

type Registrant struct {
	ID                    string       `db:"id" json:"id"`
	ResourceType          ResourceType `db:"resource_type" json:"resourceType"`
	Stage                 Stage        `db:"stage" json:"recordStage"`
	Email                 string       `db:"email" json:"email"`
	Phone                 *string      `db:"phone" json:"phone,omitempty"`
	RollNumber            *string      `db:"roll_number" json:"rollNumber,omitempty"`
	Status                string       `db:"status" json:"status"`
	Fields                Fields       `db:"fields" json:"-"`
	Attachment            *Attachment  `db:"attachment" json:"-"`
	GeneratedReferralCode *string      `db:"generated_referral_code" json:"generatedReferralCode,omitempty"`
	ReferralCode          *string      `db:"referral_code" json:"referralCode,omitempty"`
	Notes                 string       `db:"notes" json:"notes"`
	TotalCost             float64      `db:"total_cost" json:"totalCost"`
	AmountPaid            float64      `db:"amount_paid" json:"amountPaid"`
	CreatedAt             time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time    `db:"updated_at" json:"updatedAt"`
}

// registrantColumns is an alias without the MarshalJSON method.
type registrantColumns Registrant

// MarshalJSON flattens Fields into the top level object. Column values win
// over bag entries of the same name.
func (r Registrant) MarshalJSON() ([]byte, error) {
	columns, err := json.Marshal(registrantColumns(r))
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(r.Fields)+16)
	for k, v := range r.Fields {
		out[k] = v
	}

	if r.Attachment != nil {
		out[r.Attachment.Field] = r.Attachment
		out[r.Attachment.Field+"Path"] = r.Attachment.Key
	}

	var fixed map[string]any
	if err := json.Unmarshal(columns, &fixed); err != nil {
		return nil, err
	}
	for k, v := range fixed {
		out[k] = v
	}

	return json.Marshal(out)
}

// Attachment is the metadata of an uploaded document.
type Attachment struct {
	Field        string    `json:"field"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"filename"`
	Key          string    `json:"path"`
	Backend      string    `json:"backend"`
	ContentType  string    `json:"mimetype"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// ReferralCode back-references the registrant that owns it.
type ReferralCode struct {
	Code         string    `db:"code" json:"code"`
	RegistrantID string    `db:"registrant_id" json:"registrantId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Referrer is a referral code joined with its owner's display name.
type Referrer struct {
	Code         string `db:"code" json:"code"`
	RegistrantID string `db:"registrant_id" json:"registrantId"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
}
