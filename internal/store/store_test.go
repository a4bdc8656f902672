package store

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Ping(ctx context.Context) error { return f.err }

func validPatient() Patient {
	return Patient{
		ClientID:  "c-1",
		VisitID:   "v-1",
		DoctorID:  "d-1",
		FirstName: "Ana",
		LastName:  "Cruz",
		Age:       41,
		Gender:    "F",
		VisitDate: "2024-03-01",
		Symptoms:  "wrist pain",
	}
}

func TestInsertDoctor(t *testing.T) {
	db := &fakeDB{}
	if err := New(db).InsertDoctor(context.Background(), Doctor{DoctorID: "d-1", FirstName: "Jo", LastName: "Reyes"}); err != nil {
		t.Fatalf("InsertDoctor: %v", err)
	}

	if len(db.calls) != 1 || !strings.Contains(db.calls[0].sql, "INSERT INTO doctor") {
		t.Fatalf("unexpected calls %+v", db.calls)
	}
	if got := db.calls[0].args; len(got) != 3 || got[0] != "d-1" {
		t.Fatalf("unexpected args %v", got)
	}
}

func TestInsertPatientParsesVisitDate(t *testing.T) {
	db := &fakeDB{}
	if err := New(db).InsertPatient(context.Background(), validPatient()); err != nil {
		t.Fatalf("InsertPatient: %v", err)
	}

	args := db.calls[0].args
	if len(args) != 10 {
		t.Fatalf("expected 10 args, got %d", len(args))
	}
	visit, ok := args[8].(time.Time)
	if !ok || !visit.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected visit date %v", args[8])
	}
}

func TestInsertDiagnosisPassesImageBytes(t *testing.T) {
	db := &fakeDB{}
	image := []byte{0x89, 'P', 'N', 'G'}
	d := Diagnosis{ClientID: "c-1", DoctorID: "d-1", VisitID: "v-1", AIDiagnosedCondition: "Fracture", ImageData: image}

	if err := New(db).InsertDiagnosis(context.Background(), d); err != nil {
		t.Fatalf("InsertDiagnosis: %v", err)
	}
	got, ok := db.calls[0].args[7].([]byte)
	if !ok || string(got) != string(image) {
		t.Fatalf("expected image bytes, got %v", db.calls[0].args[7])
	}
}

func TestValidationRejectsBadRecords(t *testing.T) {
	badAge := validPatient()
	badAge.Age = -1
	badDate := validPatient()
	badDate.VisitDate = "01/03/2024"

	tests := []struct {
		name string
		run  func(*Store) error
		want string
	}{
		{"doctor missing names", func(s *Store) error { return s.InsertDoctor(context.Background(), Doctor{DoctorID: "d"}) }, "missing first_name, last_name"},
		{"patient age", func(s *Store) error { return s.InsertPatient(context.Background(), badAge) }, "age -1"},
		{"patient date", func(s *Store) error { return s.InsertPatient(context.Background(), badDate) }, "visit_date"},
		{"diagnosis ids", func(s *Store) error { return s.InsertDiagnosis(context.Background(), Diagnosis{}) }, "missing client_id, doctor_id, visit_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{}
			err := tt.run(New(db))
			if !errors.Is(err, ErrInvalidRecord) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected ErrInvalidRecord mentioning %q, got %v", tt.want, err)
			}
			if len(db.calls) != 0 {
				t.Fatal("invalid records must not reach the database")
			}
		})
	}
}

func TestInsertWrapsDatabaseErrors(t *testing.T) {
	boom := errors.New("duplicate key")
	err := New(&fakeDB{err: boom}).InsertDoctor(context.Background(), Doctor{DoctorID: "d", FirstName: "a", LastName: "b"})
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "insert doctor") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(GetEmbeddedMigrations(), MigrationsDir)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected embedded migrations, got %v (%v)", entries, err)
	}

	data, err := fs.ReadFile(GetEmbeddedMigrations(), MigrationsDir+"/"+entries[0].Name())
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "CREATE TABLE IF NOT EXISTS doctor", "image_data                  BYTEA"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("migration missing %q", want)
		}
	}
}

func TestConnectAndMigrateRequireURL(t *testing.T) {
	if _, err := Connect(context.Background(), ""); !errors.Is(err, ErrDatabaseURLNotSet) {
		t.Fatalf("expected ErrDatabaseURLNotSet, got %v", err)
	}
	if err := SyncSchema(context.Background(), ""); !errors.Is(err, ErrDatabaseURLNotSet) {
		t.Fatalf("expected ErrDatabaseURLNotSet, got %v", err)
	}
}
