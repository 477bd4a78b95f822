package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// ErrAlreadyTerminal is returned when a write would leave a completed or
// failed state. Terminal results belong to a finished check instance and are
// never reopened; a re-upload gets its own submission and a fresh record.
var ErrAlreadyTerminal = errors.New("plagiarism result is already terminal")

// ResultStore persists check state transitions. The mongo implementation
// guards every update with the set of legal prior states so an illegal
// transition is a no-op rather than a corruption.
type ResultStore interface {
	GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error)
	SetJobID(ctx context.Context, submissionID, jobID string) error
	MarkProcessing(ctx context.Context, submissionID string) error
	SaveExtractedText(ctx context.Context, submissionID, text string) error
	MarkCompleted(ctx context.Context, submissionID string, res *Result) error
	MarkFailed(ctx context.Context, submissionID, errMsg string) error
}

type mongoResultStore struct {
	submissions *mongo.Collection
}

func NewResultStore(db *mongo.Database) ResultStore {
	return &mongoResultStore{submissions: db.Collection("submissions")}
}

func (s *mongoResultStore) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	var sub models.Submission
	err := s.submissions.FindOne(ctx, bson.M{"_id": submissionID}).Decode(&sub)
	if err != nil {
		return nil, fmt.Errorf("submission %s not found: %w", submissionID, err)
	}
	return &sub, nil
}

func (s *mongoResultStore) SetJobID(ctx context.Context, submissionID, jobID string) error {
	_, err := s.submissions.UpdateOne(ctx,
		bson.M{"_id": submissionID, "plagiarism.status": models.CheckStatusQueued},
		bson.M{"$set": bson.M{
			"plagiarism.job_id": jobID,
			"updated_at":        time.Now(),
		}},
	)
	return err
}

func (s *mongoResultStore) MarkProcessing(ctx context.Context, submissionID string) error {
	// A retried delivery re-enters processing from processing; that is the
	// same check instance re-running, not a reverse transition.
	return s.transition(ctx, submissionID,
		[]string{models.CheckStatusQueued, models.CheckStatusProcessing},
		bson.M{"plagiarism.status": models.CheckStatusProcessing},
	)
}

func (s *mongoResultStore) SaveExtractedText(ctx context.Context, submissionID, text string) error {
	_, err := s.submissions.UpdateOne(ctx,
		bson.M{"_id": submissionID},
		bson.M{"$set": bson.M{
			"extracted_text": text,
			"updated_at":     time.Now(),
		}},
	)
	return err
}

func (s *mongoResultStore) MarkCompleted(ctx context.Context, submissionID string, res *Result) error {
	now := time.Now()
	matches := res.MatchedSources
	if matches == nil {
		matches = []models.MatchedSource{}
	}
	return s.transition(ctx, submissionID,
		[]string{models.CheckStatusQueued, models.CheckStatusProcessing},
		bson.M{
			"plagiarism.status":            models.CheckStatusCompleted,
			"plagiarism.originality_score": res.OriginalityScore,
			"plagiarism.matched_sources":   matches,
			"plagiarism.processed_at":      now,
			"plagiarism.error":             "",
		},
	)
}

func (s *mongoResultStore) MarkFailed(ctx context.Context, submissionID, errMsg string) error {
	// Failed carries only the error; score and matches stay unset.
	return s.transition(ctx, submissionID,
		[]string{models.CheckStatusQueued, models.CheckStatusProcessing},
		bson.M{
			"plagiarism.status": models.CheckStatusFailed,
			"plagiarism.error":  errMsg,
		},
	)
}

func (s *mongoResultStore) transition(ctx context.Context, submissionID string, from []string, set bson.M) error {
	set["updated_at"] = time.Now()
	result, err := s.submissions.UpdateOne(ctx,
		bson.M{"_id": submissionID, "plagiarism.status": bson.M{"$in": from}},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("status update for %s failed: %w", submissionID, err)
	}
	if result.MatchedCount == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}
