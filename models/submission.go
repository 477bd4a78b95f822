package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Submission represents one uploaded document version belonging to a capstone
// project. A re-upload always creates a new Submission with a fresh ID, so a
// plagiarism check never reopens a prior version's result.
type Submission struct {
	ID            string              `bson:"_id" json:"id"`
	ProjectID     primitive.ObjectID  `bson:"project_id" json:"project_id"`
	AuthorID      primitive.ObjectID  `bson:"author_id" json:"author_id"`
	Chapter       string              `bson:"chapter" json:"chapter"` // e.g. "chapter-1", "full-manuscript"
	Filename      string              `bson:"filename" json:"filename"`
	StorageKey    string              `bson:"storage_key" json:"-"`
	FileType      string              `bson:"file_type" json:"file_type"` // MIME type
	Size          int64               `bson:"size" json:"size"`
	FileHash      string              `bson:"file_hash" json:"file_hash"`
	Version       int                 `bson:"version" json:"version"`
	ExtractedText string              `bson:"extracted_text,omitempty" json:"-"`
	Plagiarism    PlagiarismResult    `bson:"plagiarism" json:"plagiarism"`
	UploadedAt    time.Time           `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}

// PlagiarismResult is the persisted outcome of one originality check. It is
// embedded on the owning submission, created in the queued state at upload
// time and mutated only by the process routine. Never deleted.
type PlagiarismResult struct {
	Status           string          `bson:"status" json:"status"` // queued, processing, completed, failed
	OriginalityScore *int            `bson:"originality_score,omitempty" json:"originality_score,omitempty"`
	MatchedSources   []MatchedSource `bson:"matched_sources,omitempty" json:"matched_sources,omitempty"`
	ProcessedAt      *time.Time      `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
	JobID            string          `bson:"job_id,omitempty" json:"job_id,omitempty"`
	Error            string          `bson:"error,omitempty" json:"error,omitempty"`
}

// MatchedSource is one corpus document whose shingle overlap with the checked
// submission exceeded the noise floor.
type MatchedSource struct {
	SourceID        string `bson:"source_id" json:"source_id"`
	Title           string `bson:"title" json:"title"`
	Chapter         string `bson:"chapter" json:"chapter"`
	MatchPercentage int    `bson:"match_percentage" json:"match_percentage"`
}

// CorpusDocument is the ephemeral projection used during comparison. It is
// never persisted as its own entity.
type CorpusDocument struct {
	ID      string
	Title   string
	Chapter string
	Text    string
}

// Check status constants. Transitions are one-directional:
// queued -> processing -> completed | failed.
const (
	CheckStatusQueued     = "queued"
	CheckStatusProcessing = "processing"
	CheckStatusCompleted  = "completed"
	CheckStatusFailed     = "failed"
)

// UploadResponse is returned immediately after a submission upload is
// accepted; the check itself runs in the background.
type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Version  int    `json:"version"`
	Status   string `json:"status"`
	JobID    string `json:"job_id,omitempty"`
	Message  string `json:"message"`
}

// CheckStatusResponse is the trivial status read exposed to clients.
type CheckStatusResponse struct {
	SubmissionID     string          `json:"submission_id"`
	Status           string          `json:"status"`
	OriginalityScore *int            `json:"originality_score,omitempty"`
	MatchedSources   []MatchedSource `json:"matched_sources,omitempty"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	Error            string          `json:"error,omitempty"`
}
