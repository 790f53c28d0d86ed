package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ResumeData is the structured resume exchanged with the model and stored on a resume.
type ResumeData struct {
	ContactInfo    ContactInfo     `json:"contactInfo" validate:"required"`
	Summary        string          `json:"summary,omitempty"`
	Experience     []Experience    `json:"experience" validate:"dive"`
	Education      []Education     `json:"education" validate:"dive"`
	Skills         []string        `json:"skills" validate:"dive,max=200"`
	Certifications []Certification `json:"certifications" validate:"dive"`
	Projects       []Project       `json:"projects" validate:"dive"`
}

// ContactInfo holds the candidate's identity and links.
type ContactInfo struct {
	FullName string `json:"fullName" validate:"required,max=200"`
	Email    string `json:"email" validate:"max=320"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
	GitHub   string `json:"github,omitempty"`
}

type Experience struct {
	Company    string   `json:"company" validate:"required"`
	Title      string   `json:"title" validate:"required"`
	Location   string   `json:"location,omitempty"`
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate,omitempty"`
	Current    bool     `json:"current"`
	Highlights []string `json:"highlights"`
}

type Education struct {
	Institution string   `json:"institution" validate:"required"`
	Degree      string   `json:"degree"`
	Field       string   `json:"field"`
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	GPA         string   `json:"gpa,omitempty"`
	Highlights  []string `json:"highlights"`
}

type Certification struct {
	Name   string `json:"name" validate:"required"`
	Issuer string `json:"issuer"`
	Date   string `json:"date,omitempty"`
	URL    string `json:"url,omitempty"`
}

type Project struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	URL          string   `json:"url,omitempty"`
	Highlights   []string `json:"highlights"`
}

// ErrInvalid wraps every schema violation returned by Validate and Parse.
var ErrInvalid = errors.New("resume data invalid")

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate enforces the required fields of the resume schema.
func (d ResumeData) Validate() error {
	err := validatorInstance().Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", strings.TrimPrefix(fe.Namespace(), "ResumeData."), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", ErrInvalid, err)
}

// Parse decodes raw into ResumeData, rejecting non-objects and schema violations.
func Parse(raw json.RawMessage) (ResumeData, error) {
	var data ResumeData
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return data, fmt.Errorf("%w: expected a JSON object", ErrInvalid)
	}
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return data, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := data.Validate(); err != nil {
		return data, err
	}
	data.normalize()
	return data, nil
}

// normalize replaces absent lists with empty ones so stored data always encodes arrays.
func (d *ResumeData) normalize() {
	if d.Experience == nil {
		d.Experience = []Experience{}
	}
	if d.Education == nil {
		d.Education = []Education{}
	}
	if d.Skills == nil {
		d.Skills = []string{}
	}
	if d.Certifications == nil {
		d.Certifications = []Certification{}
	}
	if d.Projects == nil {
		d.Projects = []Project{}
	}
	for i := range d.Experience {
		if d.Experience[i].Highlights == nil {
			d.Experience[i].Highlights = []string{}
		}
	}
	for i := range d.Education {
		if d.Education[i].Highlights == nil {
			d.Education[i].Highlights = []string{}
		}
	}
	for i := range d.Projects {
		if d.Projects[i].Technologies == nil {
			d.Projects[i].Technologies = []string{}
		}
		if d.Projects[i].Highlights == nil {
			d.Projects[i].Highlights = []string{}
		}
	}
}
