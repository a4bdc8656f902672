package store

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type Doctor struct {
	DoctorID  string `json:"doctor_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (d Doctor) Validate() error {
	return required(map[string]string{
		"doctor_id":  d.DoctorID,
		"first_name": d.FirstName,
		"last_name":  d.LastName,
	})
}

type Patient struct {
	ClientID  string `json:"client_id"`
	VisitID   string `json:"visit_id"`
	DoctorID  string `json:"doctor_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Gender    string `json:"gender"`
	ContactNo string `json:"contact_no"`
	VisitDate string `json:"visit_date"` // YYYY-MM-DD
	Symptoms  string `json:"symptoms"`
}

func (p Patient) Validate() error {
	if err := required(map[string]string{
		"client_id":  p.ClientID,
		"visit_id":   p.VisitID,
		"doctor_id":  p.DoctorID,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"gender":     p.Gender,
		"visit_date": p.VisitDate,
	}); err != nil {
		return err
	}
	if p.Age < 0 || p.Age > 150 {
		return fmt.Errorf("%w: age %d out of range", ErrInvalidRecord, p.Age)
	}
	if _, err := time.Parse(dateLayout, p.VisitDate); err != nil {
		return fmt.Errorf("%w: visit_date must be YYYY-MM-DD", ErrInvalidRecord)
	}
	return nil
}

// Diagnosis is one AI-assisted diagnosis for a visit. ImageData travels as base64 in JSON.
type Diagnosis struct {
	ClientID                 string `json:"client_id"`
	DoctorID                 string `json:"doctor_id"`
	VisitID                  string `json:"visit_id"`
	AIDiagnosedCondition     string `json:"ai_diagnosed_condition"`
	AIDetailedAnalysis       string `json:"ai_detailed_analysis"`
	AITreatmentDiagnosisWise string `json:"ai_treatment_diagnosiswise"`
	DoctorAnalysis           string `json:"doctor_analysis"`
	ImageData                []byte `json:"image_data,omitempty"`
}

func (d Diagnosis) Validate() error {
	return required(map[string]string{
		"client_id": d.ClientID,
		"doctor_id": d.DoctorID,
		"visit_id":  d.VisitID,
	})
}

func required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
}
