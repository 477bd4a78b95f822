package plagiarism

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// UntitledProject is the title placeholder for corpus entries whose owning
// project record is missing or has no title.
const UntitledProject = "Untitled Project"

// CorpusBuilder assembles the comparison corpus for one check: prior
// submissions that already carry extracted text, excluding the submission
// itself and anything from the same project (intra-team drafts would
// otherwise self-match).
type CorpusBuilder struct {
	submissions *mongo.Collection
	projects    *mongo.Collection
	limit       int
}

func NewCorpusBuilder(db *mongo.Database, limit int) *CorpusBuilder {
	if limit <= 0 {
		limit = 100
	}
	return &CorpusBuilder{
		submissions: db.Collection("submissions"),
		projects:    db.Collection("projects"),
		limit:       limit,
	}
}

type corpusRow struct {
	ID        string             `bson:"_id"`
	ProjectID primitive.ObjectID `bson:"project_id"`
	Chapter   string             `bson:"chapter"`
	Text      string             `bson:"extracted_text"`
}

// Build returns up to the configured cap of corpus documents, each enriched
// with a human-readable project title. No ordering is guaranteed.
func (b *CorpusBuilder) Build(ctx context.Context, projectID primitive.ObjectID, submissionID string) ([]models.CorpusDocument, error) {
	filter := bson.M{
		"_id":            bson.M{"$ne": submissionID},
		"project_id":     bson.M{"$ne": projectID},
		"extracted_text": bson.M{"$exists": true, "$ne": ""},
	}
	opts := options.Find().
		SetLimit(int64(b.limit)).
		SetProjection(bson.M{"_id": 1, "project_id": 1, "chapter": 1, "extracted_text": 1})

	cursor, err := b.submissions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("corpus query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []corpusRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("corpus decode failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	titles, err := b.projectTitles(ctx, rows)
	if err != nil {
		return nil, err
	}

	corpus := make([]models.CorpusDocument, 0, len(rows))
	for _, row := range rows {
		title, ok := titles[row.ProjectID]
		if !ok || title == "" {
			title = UntitledProject
		}
		corpus = append(corpus, models.CorpusDocument{
			ID:      row.ID,
			Title:   title,
			Chapter: row.Chapter,
			Text:    row.Text,
		})
	}
	return corpus, nil
}

func (b *CorpusBuilder) projectTitles(ctx context.Context, rows []corpusRow) (map[primitive.ObjectID]string, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(rows))
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.ProjectID]; ok {
			continue
		}
		seen[row.ProjectID] = struct{}{}
		ids = append(ids, row.ProjectID)
	}

	cursor, err := b.projects.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"_id": 1, "title": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("project title lookup failed: %w", err)
	}
	defer cursor.Close(ctx)

	var projects []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Title string             `bson:"title"`
	}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("project title decode failed: %w", err)
	}

	titles := make(map[primitive.ObjectID]string, len(projects))
	for _, p := range projects {
		titles[p.ID] = p.Title
	}
	return titles, nil
}
