package registration

import (
	"fmt"
	"slices"

	"vetrian/pkg/types"
)

const (
	StatusNotViewed = "Not Viewed"
	StatusViewed    = "Viewed"

	StatusCareerNew       = "New"
	StatusCareerReviewed  = "Reviewed"
	StatusCareerInterview = "Interview"
	StatusCareerRejected  = "Rejected"
	StatusCareerHired     = "Hired"

	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	maxResumeBytes   = 5 << 20
	maxProposalBytes = 50 << 20

	projectTitlePlaceholder = "Project Title Not Provided"
)

var (
	pdfOnly = []string{"application/pdf"}
	pdfDoc  = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}

	// echoed back after a draft save so the client can confirm what was kept
	draftEcho = []string{"id", "email", "college", "degree", "department", "year", "rollNumber"}

	personalFields = []string{"fullName", "email", "phone", "gender", "city", "dob"}
	academicFields = []string{"college", "degree", "department", "year", "rollNumber"}
	referralFields = []string{"referralCode", "yourReferralCode", "heardFrom"}

	genders       = []string{"Male", "Female", "Other"}
	accessChoices = []string{accessFull, accessFlexible}
)

// Descriptor holds everything that varies between resource types. The
// engines are written once against it.
type Descriptor struct {
	Type  types.ResourceType
	Label string

	// Prefix is the route prefix for final records and, when Drafts is set,
	// draft routes too. DraftAliases mount the draft routes a second time.
	Prefix       string
	DraftAliases []string
	Drafts       bool

	// Fields lists everything the public submission flow may store.
	Fields      []string
	Required    []string
	AdminFields []string
	Defaults    map[string]string

	Rules      map[string]string
	Enums      map[string][]string
	DateFields []string
	BoolFields []string
	NumFields  []string

	UniqueFields []string

	InitialStatus string
	Statuses      []string

	SynthesizeRollNumber bool
	AccessField          string
	ReferralBearing      bool
	NameField            string

	Upload *types.UploadPolicy
}

func (d *Descriptor) Allows(field string) bool {
	return slices.Contains(d.Fields, field)
}

func (d *Descriptor) AllowsAdmin(field string) bool {
	switch field {
	case "status", "notes", "totalCost", "amountPaid":
		return true
	}
	return slices.Contains(d.AdminFields, field)
}

// StatusesFor returns the status domain for a stage. Drafts share one
// domain across resource types.
func (d *Descriptor) StatusesFor(stage types.Stage) []string {
	if stage == types.StageDraft {
		return []string{StatusNotViewed, StatusViewed}
	}
	return d.Statuses
}

func (d *Descriptor) InitialStatusFor(stage types.Stage) string {
	if stage == types.StageDraft {
		return StatusNotViewed
	}
	return d.InitialStatus
}

// Echo is the acknowledgment subset returned by a draft save.
func (d *Descriptor) Echo() []string {
	return draftEcho
}

// Descriptors indexes descriptors by resource type.
type Descriptors map[types.ResourceType]*Descriptor

func (ds Descriptors) Lookup(rt types.ResourceType) (*Descriptor, error) {
	d, ok := ds[rt]
	if !ok {
		return nil, types.NewInvalidRequest(fmt.Sprintf("unknown resource type %q", rt))
	}
	return d, nil
}

// Ordered returns the descriptors in a stable order.
func (ds Descriptors) Ordered() []*Descriptor {
	out := make([]*Descriptor, 0, len(ds))
	for _, rt := range []types.ResourceType{
		types.ResourceCourse,
		types.ResourceInternship,
		types.ResourceRD,
		types.ResourceCareer,
		types.ResourceIdeaForge,
	} {
		if d, ok := ds[rt]; ok {
			out = append(out, d)
		}
	}
	return out
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func DefaultDescriptors() Descriptors {
	course := &Descriptor{
		Type:         types.ResourceCourse,
		Label:        "Course",
		Prefix:       "/RegisterCourse",
		DraftAliases: []string{"/PartialCourse"},
		Drafts:       true,
		Fields: concat(personalFields, academicFields, referralFields, []string{
			"courseName", "courseDuration", "learningMode", "preferredTimeSlot", "courseLevel",
			"startDate", "previousExperience", "additionalComments", "agreement", "accessPreference",
		}),
		Required: []string{
			"fullName", "email", "phone", "gender", "city", "dob",
			"college", "degree", "department", "year", "rollNumber",
			"courseName", "courseDuration", "learningMode", "preferredTimeSlot", "courseLevel",
			"heardFrom", "agreement", "accessPreference",
		},
		Rules:         map[string]string{"email": "email"},
		Enums:         map[string][]string{"gender": genders, "accessPreference": accessChoices},
		DateFields:    []string{"dob", "startDate"},
		BoolFields:    []string{"agreement"},
		UniqueFields:  []string{"email", "phone", "rollNumber"},
		InitialStatus: StatusNotViewed,
		Statuses:      []string{StatusNotViewed, StatusViewed},
		NameField:     "fullName",
		Upload: &types.UploadPolicy{
			Field:        "resume",
			Dir:          "upload_courses",
			MaxBytes:     maxResumeBytes,
			Extensions:   []string{".pdf"},
			ContentTypes: pdfOnly,
		},
	}

	internship := &Descriptor{
		Type:         types.ResourceInternship,
		Label:        "Internship",
		Prefix:       "/RegisterIntern",
		DraftAliases: []string{"/PartialIntern"},
		Drafts:       true,
		Fields: concat(personalFields, academicFields, referralFields, []string{
			"domain", "duration", "internshipType", "startDate", "interestReason", "skills",
			"previousExperience", "expectations", "additionalComments", "agreement", "accessPreference",
		}),
		Required: []string{
			"fullName", "email", "phone", "gender", "city", "dob",
			"college", "degree", "department", "year",
			"domain", "duration", "internshipType", "startDate", "interestReason", "skills",
			"agreement", "accessPreference",
		},
		Rules:                map[string]string{"email": "email"},
		Enums:                map[string][]string{"gender": genders, "accessPreference": accessChoices},
		DateFields:           []string{"dob", "startDate"},
		BoolFields:           []string{"agreement"},
		UniqueFields:         []string{"email", "phone", "rollNumber"},
		InitialStatus:        StatusNotViewed,
		Statuses:             []string{StatusNotViewed, StatusViewed},
		SynthesizeRollNumber: true,
		NameField:            "fullName",
		Upload: &types.UploadPolicy{
			Field:        "resume",
			Dir:          "upload_intern",
			MaxBytes:     maxResumeBytes,
			Extensions:   []string{".pdf"},
			ContentTypes: pdfOnly,
		},
	}

	rd := &Descriptor{
		Type:         types.ResourceRD,
		Label:        "R&D Project",
		Prefix:       "/RDprojects",
		DraftAliases: []string{"/partialRD"},
		Drafts:       true,
		Fields: concat(personalFields, academicFields, referralFields, []string{
			"domain", "projectTitle", "teamType", "teamMembers", "stage", "shortDesc", "supervisor",
			"skills", "additionalComments", "agreement", "accessPreference",
		}),
		Required: []string{
			"fullName", "email", "phone", "college", "degree", "department", "year",
			"domain", "projectTitle", "teamType", "accessPreference", "agreement",
		},
		Defaults: map[string]string{
			"projectTitle": projectTitlePlaceholder,
			"stage":        "Idea",
			"teamType":     "Individual",
		},
		Rules:                map[string]string{"email": "email"},
		Enums: map[string][]string{
			"gender":           genders,
			"accessPreference": accessChoices,
			"teamType":         {"Team", "Individual"},
		},
		DateFields:           []string{"dob"},
		BoolFields:           []string{"agreement"},
		UniqueFields:         []string{"email", "phone", "rollNumber"},
		InitialStatus:        StatusNotViewed,
		Statuses:             []string{StatusNotViewed, StatusViewed},
		SynthesizeRollNumber: true,
		AccessField:          "projectAccess",
		NameField:            "fullName",
		Upload: &types.UploadPolicy{
			Field:        "proposal",
			Dir:          "upload_rd",
			MaxBytes:     maxProposalBytes,
			Extensions:   []string{".pdf", ".doc", ".docx"},
			ContentTypes: pdfDoc,
			InMemory:     true,
		},
	}

	career := &Descriptor{
		Type:   types.ResourceCareer,
		Label:  "Career",
		Prefix: "/RegisterCareer",
		Fields: []string{
			"fullName", "email", "phone", "gender", "city", "rollNumber",
			"position", "experienceType", "currentCompany", "currentDesignation", "experience",
			"currentCTC", "expectedCTC", "noticePeriod", "highestQualification", "degree", "domain",
			"heardFrom", "interestReason",
		},
		Required: []string{
			"fullName", "email", "phone", "city", "position", "experienceType",
			"highestQualification", "degree", "domain", "heardFrom", "interestReason",
		},
		AdminFields:          []string{"rating", "interviewDate"},
		Rules:                map[string]string{"email": "email"},
		Enums:                map[string][]string{"gender": genders, "experienceType": {"fresher", "experienced"}},
		DateFields:           []string{"interviewDate"},
		NumFields:            []string{"currentCTC", "expectedCTC", "rating"},
		UniqueFields:         []string{"email", "phone"},
		InitialStatus:        StatusCareerNew,
		Statuses:             []string{StatusCareerNew, StatusCareerReviewed, StatusCareerInterview, StatusCareerRejected, StatusCareerHired},
		SynthesizeRollNumber: true,
		NameField:            "fullName",
		Upload: &types.UploadPolicy{
			Field:        "resume",
			Dir:          "upload_careers",
			MaxBytes:     maxResumeBytes,
			Extensions:   []string{".pdf", ".doc", ".docx"},
			ContentTypes: pdfDoc,
			Required:     true,
		},
	}

	ideaforge := &Descriptor{
		Type:   types.ResourceIdeaForge,
		Label:  "IdeaForge",
		Prefix: "/Ideaforge",
		Fields: []string{
			"name", "email", "phone", "degree", "department", "year", "domain",
			"ideaType", "ideaDescription", "finalDate", "gotReferral", "referralCode",
		},
		Required: []string{
			"name", "email", "phone", "degree", "department", "year", "domain",
			"ideaType", "finalDate", "gotReferral",
		},
		Rules: map[string]string{
			"name":            "min=2,max=50,alphaspace",
			"email":           "email",
			"phone":           "mobile_in",
			"degree":          "min=2,max=50",
			"department":      "min=2,max=50",
			"ideaDescription": "min=20,max=500",
			"finalDate":       "within_year",
		},
		Enums: map[string][]string{
			"year": {"1st Year", "2nd Year", "3rd Year", "4th Year", "Final Year"},
			"domain": {
				"Web Development",
				"Mobile App Development",
				"Artificial Intelligence & Machine Learning",
				"Data Science",
				"IoT",
				"Cybersecurity",
				"Blockchain",
				"Cloud Computing",
				"UI/UX Design",
				"Other",
			},
			"ideaType":    {"existing", "own"},
			"gotReferral": {"yes", "no"},
		},
		UniqueFields:    []string{"email", "phone"},
		InitialStatus:   StatusPending,
		Statuses:        []string{StatusPending, StatusApproved, StatusRejected},
		ReferralBearing: true,
		NameField:       "name",
	}

	return Descriptors{
		course.Type:     course,
		internship.Type: internship,
		rd.Type:         rd,
		career.Type:     career,
		ideaforge.Type:  ideaforge,
	}
}
