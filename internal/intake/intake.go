// Package intake turns raw request bodies into normalized form values.
//
// Browsers re-render select boxes with their "Select X" prompt and resend
// repeated controls as lists, so everything leaving this package is one
// trimmed, non-empty, non-placeholder string per field.
package intake

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"vetrian/pkg/types"
)

// placeholders are the select-box prompts the registration forms submit
// when nothing was chosen.
var placeholders = []string{
	"Select Gender",
	"Select City",
	"Select Degree",
	"Select Year",
	"Select Course",
	"Select Duration",
	"Select Mode",
	"Select Time Slot",
	"Select Level",
}

func IsPlaceholder(v string) bool {
	for _, p := range placeholders {
		if strings.Contains(v, p) {
			return true
		}
	}
	return false
}

// Collapse picks the last entry that is neither blank nor a placeholder.
func Collapse(entries []string) string {
	for i := len(entries) - 1; i >= 0; i-- {
		v := strings.TrimSpace(entries[i])
		if v == "" || IsPlaceholder(v) {
			continue
		}
		return v
	}
	return ""
}

func FromForm(form url.Values) types.FormValues {
	out := make(types.FormValues, len(form))
	for key, entries := range form {
		if v := Collapse(entries); v != "" {
			out[key] = v
		}
	}
	return out
}

// FromJSON flattens a decoded JSON object. Booleans and numbers become their
// string forms, arrays collapse like repeated form fields and nested
// objects are dropped.
func FromJSON(body map[string]any) types.FormValues {
	out := make(types.FormValues, len(body))
	for key, raw := range body {
		var entries []string
		switch v := raw.(type) {
		case []any:
			for _, item := range v {
				if s, ok := scalar(item); ok {
					entries = append(entries, s)
				}
			}
		default:
			if s, ok := scalar(v); ok {
				entries = []string{s}
			}
		}

		if v := Collapse(entries); v != "" {
			out[key] = v
		}
	}
	return out
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

// Parse reads the request body according to its content type. Multipart
// bodies are parsed with maxMemory; the caller pulls files off
// r.MultipartForm afterwards.
func Parse(r *http.Request, maxMemory int64) (types.FormValues, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, bodyError(err)
		}
		return FromForm(r.MultipartForm.Value), nil

	case "application/json":
		if r.Body == nil || r.ContentLength == 0 {
			return types.FormValues{}, nil
		}

		var body map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			return nil, bodyError(err)
		}
		return FromJSON(body), nil

	default:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		return FromForm(r.PostForm), nil
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return types.NewValidationFailed("File too large", nil)
	}
	return types.NewInvalidRequest("Invalid request body")
}
