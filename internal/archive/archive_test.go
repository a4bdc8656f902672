package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Skufu/radiolens/internal/report"
)

func TestFromReport(t *testing.T) {
	profile, _ := report.DefaultProfiles().Get(report.ProfileImaging)
	rep := report.NewParser(profile).Parse("**Analysis Report**: Condition: Gout\n**Treatments**: NSAIDs")

	a := FromReport(KindImage, "foot.png", profile.Name, rep)
	if a.DiagnosedCondition != "Gout" || a.Sections["treatments"] != "NSAIDs" {
		t.Fatalf("unexpected analysis %+v", a)
	}
	if a.Kind != KindImage || a.Profile != report.ProfileImaging || a.Filename != "foot.png" {
		t.Fatalf("unexpected metadata %+v", a)
	}
}

func TestAnalysisDocumentShape(t *testing.T) {
	a := Analysis{
		ID:                 "abc",
		Kind:               KindComprehensive,
		DiagnosedCondition: "Pneumonia",
		Sections:           map[string]string{"analysis_report": "x"},
		CreatedAt:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	raw, err := bson.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	doc := bson.Raw(raw)

	if id, ok := doc.Lookup("_id").StringValueOK(); !ok || id != "abc" {
		t.Fatalf("expected _id abc, got %v", doc.Lookup("_id"))
	}
	if c, ok := doc.Lookup("diagnosed_condition").StringValueOK(); !ok || c != "Pneumonia" {
		t.Fatalf("expected diagnosed_condition, got %v", doc.Lookup("diagnosed_condition"))
	}
	if _, err := doc.LookupErr("parsing_warning"); err == nil {
		t.Fatal("empty warning should be omitted")
	}
	if _, err := doc.LookupErr("web_search"); err == nil {
		t.Fatal("nil web search should be omitted")
	}
}

func TestClampLimit(t *testing.T) {
	for in, want := range map[int]int{-5: DefaultLimit, 0: DefaultLimit, 7: 7, MaxLimit: MaxLimit, 1000: MaxLimit} {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestConnectRequiresURI(t *testing.T) {
	if _, err := Connect(context.Background(), "", ""); !errors.Is(err, ErrURIRequired) {
		t.Fatalf("expected ErrURIRequired, got %v", err)
	}
}
