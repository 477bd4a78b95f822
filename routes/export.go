package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/utils"
)

// ExportOriginalityReport streams an XLSX report of one submission's
// completed check: a summary sheet plus the matched-sources breakdown.
func ExportOriginalityReport(deps SubmissionDeps) gin.HandlerFunc {
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
			utils.RespondWithForbidden(c, "You cannot export this submission")
			return
		}

		if sub.Plagiarism.Status != models.CheckStatusCompleted {
			utils.RespondWithError(c, http.StatusConflict, "check_not_completed",
				"Originality report is only available for completed checks",
				gin.H{"status": sub.Plagiarism.Status})
			return
		}

		f, err := buildReportWorkbook(sub)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to build report", nil)
			return
		}
		defer f.Close()

		filename := fmt.Sprintf("originality-report-%s.xlsx", sub.ID)
		c.Header("Content-Description", "File Transfer")
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			// Headers are already gone; nothing left to report to the client.
			return
		}
	}
}

func buildReportWorkbook(sub models.Submission) (*excelize.File, error) {
	f := excelize.NewFile()

	const summary = "Report"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}

	score := "n/a"
	if sub.Plagiarism.OriginalityScore != nil {
		score = fmt.Sprintf("%d%%", *sub.Plagiarism.OriginalityScore)
	}
	processedAt := ""
	if sub.Plagiarism.ProcessedAt != nil {
		processedAt = sub.Plagiarism.ProcessedAt.Format(time.RFC3339)
	}

	rows := [][]interface{}{
		{"Submission ID", sub.ID},
		{"Filename", sub.Filename},
		{"Chapter", sub.Chapter},
		{"Version", sub.Version},
		{"Status", sub.Plagiarism.Status},
		{"Originality Score", score},
		{"Processed At", processedAt},
		{"Matched Sources", len(sub.Plagiarism.MatchedSources)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, err
		}
	}

	const sources = "Matched Sources"
	if _, err := f.NewSheet(sources); err != nil {
		return nil, err
	}
	header := []interface{}{"Source ID", "Project Title", "Chapter", "Match %"}
	if err := f.SetSheetRow(sources, "A1", &header); err != nil {
		return nil, err
	}
	for i, m := range sub.Plagiarism.MatchedSources {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{m.SourceID, m.Title, m.Chapter, m.MatchPercentage}
		if err := f.SetSheetRow(sources, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}
