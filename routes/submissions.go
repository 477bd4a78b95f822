package routes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/plagiarism"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/storage"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/middleware"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/utils"
)

// SubmissionDeps bundles what the submission routes need. The queue manager
// and fallback runner are constructed once at startup and injected here.
type SubmissionDeps struct {
	Config      *config.Config
	DB          *mongo.Database
	Store       storage.Store
	Queue       *queue.Manager
	Fallback    *plagiarism.SyncRunner
	ResultStore plagiarism.ResultStore
}

// HandleSubmissionUpload accepts a capstone document, persists it with a
// fresh queued check record and schedules the originality check. The check
// itself always runs after this handler has responded; enqueue failure only
// reroutes it through the inline fallback.
func HandleSubmissionUpload(deps SubmissionDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := primitive.ObjectIDFromHex(middleware.GetUserID(c))
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid user identity")
			return
		}
		projectID, err := primitive.ObjectIDFromHex(middleware.GetProjectID(c))
		if err != nil {
			utils.RespondWithForbidden(c, "A project membership is required to upload")
			return
		}

		if err := c.Request.ParseMultipartForm(deps.Config.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("document")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file", "No document file provided", nil)
			return
		}
		defer file.Close()

		if header.Size > deps.Config.MaxFileSize {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large", "File size exceeds maximum limit", nil)
			return
		}

		fileType := detectFileType(header.Header.Get("Content-Type"), header.Filename)
		if !isAllowedType(fileType, deps.Config.AllowedTypes) {
			utils.RespondWithError(c, http.StatusBadRequest, "invalid_file_type",
				"File type is not accepted for submissions",
				gin.H{"allowed_types": deps.Config.AllowedTypes})
			return
		}

		data, err := io.ReadAll(io.LimitReader(file, deps.Config.MaxFileSize))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file", nil)
			return
		}

		chapter := c.DefaultPostForm("chapter", "full-manuscript")
		submissionID := uuid.NewString()
		storageKey := fmt.Sprintf("submissions/%s/%s%s",
			projectID.Hex(), submissionID, strings.ToLower(filepath.Ext(header.Filename)))

		ctx := c.Request.Context()
		if err := deps.Store.Upload(ctx, storageKey, bytes.NewReader(data), int64(len(data)), fileType); err != nil {
			utils.RespondWithInternalError(c, "Failed to store document", nil)
			return
		}

		version, err := nextVersion(ctx, deps.DB, projectID, chapter)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to determine submission version", nil)
			return
		}

		now := time.Now()
		sub := models.Submission{
			ID:         submissionID,
			ProjectID:  projectID,
			AuthorID:   userID,
			Chapter:    chapter,
			Filename:   header.Filename,
			StorageKey: storageKey,
			FileType:   fileType,
			Size:       int64(len(data)),
			FileHash:   utils.HashBytes(data),
			Version:    version,
			Plagiarism: models.PlagiarismResult{Status: models.CheckStatusQueued},
			UploadedAt: now,
			UpdatedAt:  now,
		}
		if _, err := deps.DB.Collection("submissions").InsertOne(ctx, sub); err != nil {
			deps.Store.Delete(ctx, storageKey)
			utils.RespondWithInternalError(c, "Failed to create submission record", nil)
			return
		}

		payload := queue.CheckPayload{
			SubmissionID: submissionID,
			StorageKey:   storageKey,
			FileType:     fileType,
			ProjectID:    projectID.Hex(),
			Chapter:      chapter,
		}

		jobID, err := deps.Queue.Enqueue(ctx, payload)
		message := "Submission accepted; originality check queued"
		if err != nil {
			if !errors.Is(err, queue.ErrBrokerUnavailable) {
				utils.RespondWithInternalError(c, "Failed to schedule originality check", nil)
				return
			}
			// Broker down: same routine, inline, after this response returns.
			deps.Fallback.Start(payload)
			message = "Submission accepted; originality check running inline"
		} else {
			deps.ResultStore.SetJobID(ctx, submissionID, jobID)
		}

		c.JSON(http.StatusAccepted, models.UploadResponse{
			ID:       submissionID,
			Filename: header.Filename,
			Version:  version,
			Status:   models.CheckStatusQueued,
			JobID:    jobID,
			Message:  message,
		})
	}
}

// CheckSubmissionStatus returns the embedded check result for one
// submission. Students only see their own project's submissions.
func CheckSubmissionStatus(deps SubmissionDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		submissionID := c.Param("id")

		var sub models.Submission
		err := deps.DB.Collection("submissions").
			FindOne(c.Request.Context(), bson.M{"_id": submissionID}).
			Decode(&sub)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				utils.RespondWithNotFound(c, "Submission not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to retrieve submission", nil)
			return
		}

		if !canViewSubmission(c, sub) {
			utils.RespondWithForbidden(c, "You cannot view this submission")
			return
		}

		c.JSON(http.StatusOK, models.CheckStatusResponse{
			SubmissionID:     sub.ID,
			Status:           sub.Plagiarism.Status,
			OriginalityScore: sub.Plagiarism.OriginalityScore,
			MatchedSources:   sub.Plagiarism.MatchedSources,
			ProcessedAt:      sub.Plagiarism.ProcessedAt,
			Error:            sub.Plagiarism.Error,
		})
	}
}

// ListSubmissions lists a project's submissions with their check status,
// newest first.
func ListSubmissions(deps SubmissionDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := bson.M{}
		role := middleware.GetRole(c)
		if role == models.RoleStudent {
			projectID, err := primitive.ObjectIDFromHex(middleware.GetProjectID(c))
			if err != nil {
				utils.RespondWithForbidden(c, "A project membership is required")
				return
			}
			filter["project_id"] = projectID
		} else if pid := c.Query("project_id"); pid != "" {
			projectID, err := primitive.ObjectIDFromHex(pid)
			if err != nil {
				utils.RespondWithBadRequest(c, "Invalid project_id", nil)
				return
			}
			filter["project_id"] = projectID
		}

		page, limit := 1, 20
		if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
			page = p
		}
		if l, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil && l > 0 && l <= 100 {
			limit = l
		}

		ctx := c.Request.Context()
		col := deps.DB.Collection("submissions")
		cursor, err := col.Find(ctx, filter,
			options.Find().
				SetSort(bson.M{"uploaded_at": -1}).
				SetSkip(int64((page-1)*limit)).
				SetLimit(int64(limit)).
				SetProjection(bson.M{"extracted_text": 0}),
		)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve submissions", nil)
			return
		}
		defer cursor.Close(ctx)

		var subs []models.Submission
		if err := cursor.All(ctx, &subs); err != nil {
			utils.RespondWithInternalError(c, "Failed to decode submissions", nil)
			return
		}

		total, err := col.CountDocuments(ctx, filter)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to count submissions", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"submissions": subs,
			"pagination": gin.H{
				"page":        page,
				"limit":       limit,
				"total":       total,
				"total_pages": (total + int64(limit) - 1) / int64(limit),
			},
		})
	}
}

func canViewSubmission(c *gin.Context, sub models.Submission) bool {
	role := middleware.GetRole(c)
	if role == models.RoleCoordinator || role == models.RoleAdviser || role == models.RolePanelist {
		return true
	}
	return middleware.GetProjectID(c) == sub.ProjectID.Hex()
}

func nextVersion(ctx context.Context, db *mongo.Database, projectID primitive.ObjectID, chapter string) (int, error) {
	count, err := db.Collection("submissions").CountDocuments(ctx, bson.M{
		"project_id": projectID,
		"chapter":    chapter,
	})
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

func detectFileType(contentType, filename string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	default:
		return ct
	}
}

func isAllowedType(fileType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.EqualFold(strings.TrimSpace(t), fileType) {
			return true
		}
	}
	return false
}
