// Package archive keeps a history of completed analyses in MongoDB.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Skufu/radiolens/internal/logging"
	"github.com/Skufu/radiolens/internal/report"
	"github.com/Skufu/radiolens/internal/search"
)

var logger = logging.Logger(logging.SourceDB)

var (
	ErrNotFound    = errors.New("analysis not found")
	ErrURIRequired = errors.New("MONGODB_URI is required")
)

const (
	collectionName = "analyses"

	DefaultDatabase = "radiolens"
	DefaultLimit    = 20
	MaxLimit        = 100
)

const (
	KindImage         = "image"
	KindComprehensive = "comprehensive"
)

// Analysis is one archived request and its outcome.
type Analysis struct {
	ID                 string            `bson:"_id" json:"id"`
	Kind               string            `bson:"kind" json:"kind"`
	Filename           string            `bson:"filename" json:"filename"`
	Profile            string            `bson:"profile" json:"profile"`
	DiagnosedCondition string            `bson:"diagnosed_condition" json:"diagnosed_condition"`
	Sections           map[string]string `bson:"sections" json:"sections"`
	Warning            string            `bson:"parsing_warning,omitempty" json:"parsing_warning,omitempty"`
	Error              string            `bson:"parsing_error,omitempty" json:"parsing_error,omitempty"`
	WebSearch          *search.Response  `bson:"web_search,omitempty" json:"web_search,omitempty"`
	Comprehensive      string            `bson:"comprehensive_analysis,omitempty" json:"comprehensive_analysis,omitempty"`
	ReportFile         string            `bson:"report_file,omitempty" json:"report_file,omitempty"`
	CreatedAt          time.Time         `bson:"created_at" json:"created_at"`
}

// FromReport copies a parsed report into a new archive entry.
func FromReport(kind, filename, profile string, rep report.Report) *Analysis {
	return &Analysis{
		Kind:               kind,
		Filename:           filename,
		Profile:            profile,
		DiagnosedCondition: rep.DiagnosedCondition,
		Sections:           rep.Sections(),
		Warning:            rep.Warning,
		Error:              rep.Error,
	}
}

// Archive stores and retrieves analyses.
type Archive interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id string) (*Analysis, error)
	List(ctx context.Context, limit int) ([]Analysis, error)
}

// Mongo is the MongoDB-backed Archive.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, ErrURIRequired
	}
	if database == "" {
		database = DefaultDatabase
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", database)

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(collectionName),
		now:    time.Now,
	}, nil
}

// Ping checks the server.
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Save assigns an id and timestamp to a and inserts it.
func (m *Mongo) Save(ctx context.Context, a *Analysis) error {
	a.ID = uuid.NewString()
	a.CreatedAt = m.now().UTC()

	if _, err := m.coll.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// Get loads one analysis.
func (m *Mongo) Get(ctx context.Context, id string) (*Analysis, error) {
	var a Analysis
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis: %w", err)
	}
	return &a, nil
}

// List returns the newest analyses first.
func (m *Mongo) List(ctx context.Context, limit int) ([]Analysis, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(ClampLimit(limit)))

	cursor, err := m.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find analyses: %w", err)
	}
	defer cursor.Close(ctx)

	analyses := []Analysis{}
	if err := cursor.All(ctx, &analyses); err != nil {
		return nil, fmt.Errorf("decode analyses: %w", err)
	}
	return analyses, nil
}

// ClampLimit maps non-positive limits to DefaultLimit and caps the rest at MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
