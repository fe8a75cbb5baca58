package seed

import (
	"context"
	"fmt"
	"io"
	"time"

	"vetrian/internal/registration"
	"vetrian/pkg/types"
)

// Sample is one demo submission.
type Sample struct {
	Type   types.ResourceType
	Draft  bool
	Values types.FormValues
}

// Samples returns demo submissions for local development. Dates are
// relative to now so the IdeaForge deadline rule keeps passing.
func Samples(now time.Time) []Sample {
	return []Sample{
		{
			Type: types.ResourceCourse,
			Values: types.FormValues{
				"fullName":          "Asha Rao",
				"email":             "asha.rao@example.com",
				"phone":             "9000000101",
				"gender":            "Female",
				"city":              "Chennai",
				"dob":               "2003-04-05",
				"college":           "Anna University",
				"degree":            "B.E",
				"department":        "CSE",
				"year":              "3rd Year",
				"rollNumber":        "CSE2021001",
				"courseName":        "Go Fundamentals",
				"courseDuration":    "1 Month",
				"learningMode":      "Online",
				"preferredTimeSlot": "Evening",
				"courseLevel":       "Beginner",
				"heardFrom":         "Friend",
				"agreement":         "true",
				"accessPreference":  "Full Access",
			},
		},
		{
			Type: types.ResourceInternship,
			Values: types.FormValues{
				"fullName":         "Karthik S",
				"email":            "karthik.s@example.com",
				"phone":            "9000000102",
				"gender":           "Male",
				"city":             "Coimbatore",
				"dob":              "2002-11-20",
				"college":          "PSG Tech",
				"degree":           "B.Tech",
				"department":       "IT",
				"year":             "Final Year",
				"domain":           "Web Development",
				"duration":         "2 Months",
				"internshipType":   "Remote",
				"startDate":        now.AddDate(0, 1, 0).Format("2006-01-02"),
				"interestReason":   "Hands-on backend work",
				"skills":           "Go, SQL",
				"agreement":        "true",
				"accessPreference": "Flexible Access",
			},
		},
		{
			Type:  types.ResourceRD,
			Draft: true,
			Values: types.FormValues{
				"email":      "divya.m@example.com",
				"fullName":   "Divya M",
				"college":    "NIT Trichy",
				"department": "ECE",
			},
		},
		{
			Type: types.ResourceIdeaForge,
			Values: types.FormValues{
				"name":            "Meena Devi",
				"email":           "meena.devi@example.com",
				"phone":           "9876500103",
				"degree":          "B.Sc",
				"department":      "Physics",
				"year":            "2nd Year",
				"domain":          "IoT",
				"ideaType":        "own",
				"ideaDescription": "Low cost soil moisture sensors for small farms",
				"finalDate":       now.AddDate(0, 2, 0).Format("02/01/2006"),
				"gotReferral":     "no",
			},
		},
	}
}

// SeedRegistrants submits each sample through the registration engines.
// Samples that already exist are skipped, so running it twice is harmless.
func SeedRegistrants(ctx context.Context, svc *registration.Service, samples []Sample, out io.Writer) error {
	fmt.Fprintf(out, "Seeding %d registrants...\n", len(samples))

	created, skipped := 0, 0
	for _, sample := range samples {
		email := sample.Values.Get("email")

		var err error
		if sample.Draft {
			_, err = svc.Drafts.Save(ctx, sample.Type, email, sample.Values, nil)
		} else {
			_, err = svc.Finalizer.Submit(ctx, sample.Type, sample.Values, nil)
		}

		switch {
		case err == nil && sample.Draft:
			fmt.Fprintf(out, "  Saved %s draft %s\n", sample.Type, email)
			created++
		case err == nil:
			fmt.Fprintf(out, "  Created %s %s\n", sample.Type, email)
			created++
		case types.IsKind(err, types.KindConflict):
			fmt.Fprintf(out, "  Skipping %s %s: already registered\n", sample.Type, email)
			skipped++
		default:
			return fmt.Errorf("failed to seed %s %s: %w", sample.Type, email, err)
		}
	}

	fmt.Fprintf(out, "\nSeed complete: %d created, %d skipped\n", created, skipped)
	return nil
}
