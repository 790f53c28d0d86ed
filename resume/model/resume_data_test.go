package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResume = `{
  "contactInfo": {"fullName": "Jane Doe", "email": "jane@example.com", "github": "github.com/jane"},
  "summary": "Backend engineer",
  "experience": [{"company": "Acme", "title": "Engineer", "startDate": "2020-01", "current": true, "highlights": ["Shipped Go services"]}],
  "education": [{"institution": "MIT", "degree": "BSc", "field": "CS"}],
  "skills": ["Go", "SQL"],
  "certifications": [{"name": "CKA", "issuer": "CNCF"}],
  "projects": [{"name": "resumegen", "description": "CLI", "technologies": ["Go"]}]
}`

func TestParseValidResume(t *testing.T) {
	data, err := Parse(json.RawMessage(validResume))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", data.ContactInfo.FullName)
	assert.Equal(t, "github.com/jane", data.ContactInfo.GitHub)
	assert.True(t, data.Experience[0].Current)
	assert.Equal(t, []string{"Go", "SQL"}, data.Skills)
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	_, err := Parse(json.RawMessage(`{"contactInfo":{"email":"a@b.c"},"experience":[{"company":"","title":"x"}]}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "contactInfo.fullName (required)")
	assert.Contains(t, err.Error(), "experience[0].company (required)")
}

func TestParseRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{``, `null`, `[1,2]`, `"text"`, `{"contactInfo": 5}`} {
		_, err := Parse(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalid, raw)
	}
}

func TestResumeDataRoundTrip(t *testing.T) {
	data, err := Parse(json.RawMessage(validResume))
	require.NoError(t, err)

	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	again, err := Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestParseNormalizesMissingLists(t *testing.T) {
	data, err := Parse(json.RawMessage(`{"contactInfo":{"fullName":"A","email":""},"experience":[{"company":"c","title":"t"}]}`))
	require.NoError(t, err)

	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"skills":[]`)
	assert.Contains(t, string(encoded), `"highlights":[]`)
	assert.NotContains(t, string(encoded), "null")
}

func TestFullShapeSurvivesEncodeAndParse(t *testing.T) {
	full := `{
  "contactInfo": {"fullName": "Jane Doe", "email": "jane@example.com", "phone": "+1 555", "location": "Berlin",
    "linkedin": "in/jane", "website": "jane.dev", "github": "github.com/jane"},
  "summary": "Backend engineer",
  "experience": [{"company": "Acme", "title": "Engineer", "location": "Remote", "startDate": "2020-01",
    "endDate": "2023-06", "current": false, "highlights": []}],
  "education": [{"institution": "MIT", "degree": "BSc", "field": "CS", "startDate": "2014", "endDate": "2018",
    "gpa": "3.9", "highlights": []}],
  "skills": ["Go"],
  "certifications": [{"name": "CKA", "issuer": "CNCF", "date": "2022", "url": "https://cncf.io"}],
  "projects": [{"name": "resumegen", "description": "CLI", "technologies": [], "url": "https://x.dev", "highlights": []}]
}`
	data, err := Parse(json.RawMessage(full))
	require.NoError(t, err)

	encoded, err := json.MarshalIndent(data, "", "  ")
	require.NoError(t, err)
	assert.JSONEq(t, full, string(encoded))

	again, err := Parse(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
