// Package store writes clinic records (doctors, patient visits, diagnoses) to PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/radiolens/internal/logging"
)

var logger = logging.Logger(logging.SourceDB)

var (
	ErrDatabaseURLNotSet = errors.New("DATABASE_URL is not set")
	ErrInvalidRecord     = errors.New("invalid record")
)

// Execer is the subset of *pgxpool.Pool the store needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Connect opens a small pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, ErrDatabaseURLNotSet
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

// Store inserts records through an Execer.
type Store struct {
	db Execer
}

// New wraps db.
func New(db Execer) *Store {
	return &Store{db: db}
}

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

const insertDoctorSQL = `INSERT INTO doctor (doctor_id, first_name, last_name) VALUES ($1, $2, $3)`

// InsertDoctor adds a doctor.
func (s *Store) InsertDoctor(ctx context.Context, d Doctor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, insertDoctorSQL, d.DoctorID, d.FirstName, d.LastName); err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}

	logger.Info("doctor inserted", "doctor_id", d.DoctorID)
	return nil
}

const insertPatientSQL = `INSERT INTO patient
	(client_id, visit_id, doctor_id, first_name, last_name, age, gender, contact_no, visit_date, symptoms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// InsertPatient records a patient visit.
func (s *Store) InsertPatient(ctx context.Context, p Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	visitDate, _ := time.Parse(dateLayout, p.VisitDate)

	if _, err := s.db.Exec(ctx, insertPatientSQL,
		p.ClientID, p.VisitID, p.DoctorID, p.FirstName, p.LastName,
		p.Age, p.Gender, p.ContactNo, visitDate, p.Symptoms,
	); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	logger.Info("patient visit inserted", "client_id", p.ClientID, "visit_id", p.VisitID)
	return nil
}

const insertDiagnosisSQL = `INSERT INTO diagnosis_treatment_info
	(client_id, doctor_id, visit_id, ai_diagnosed_condition, ai_detailed_analysis,
	 ai_treatment_diagnosiswise, doctor_analysis, image_data)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// InsertDiagnosis stores the AI findings for a visit together with the scan.
func (s *Store) InsertDiagnosis(ctx context.Context, d Diagnosis) error {
	if err := d.Validate(); err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, insertDiagnosisSQL,
		d.ClientID, d.DoctorID, d.VisitID, d.AIDiagnosedCondition, d.AIDetailedAnalysis,
		d.AITreatmentDiagnosisWise, d.DoctorAnalysis, d.ImageData,
	); err != nil {
		return fmt.Errorf("insert diagnosis: %w", err)
	}

	logger.Info("diagnosis inserted", "client_id", d.ClientID, "visit_id", d.VisitID, "image_bytes", len(d.ImageData))
	return nil
}
