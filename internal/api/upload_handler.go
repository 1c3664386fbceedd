// File path: internal/api/upload_handler.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/ingest"
	"github.com/nicodishanthj/talkdata/internal/profile"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	ctx := r.Context()
	const maxMemory = 32 << 20 // 32 MiB of in-memory file parts
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		logger.Warn("api: upload form parse failed", "error", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload form: %w", err))
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("session_id is required"))
		return
	}
	if _, err := s.registry.Get(sessionID); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	defer file.Close()

	format, err := ingest.Detect(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logger.Info("api: upload received", "session", sessionID,
		"file", header.Filename, "format", format, "size", header.Size)

	schema, rows, err := ingest.ReadTable(format, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse %s: %w", header.Filename, err))
		return
	}
	report := profile.Build(schema, rows)

	src, err := s.registry.RegisterDataset(ctx, sessionID, header.Filename, schema, rows, report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Info("api: dataset registered", "session", sessionID,
		"table", src.TableName, "rows", src.RowCount, "columns", len(src.Schema))

	payload := uploadResponse{DataSource: dataSourcePayload(src)}
	if insights := s.datasetInsights(ctx, report); insights != "" {
		payload.Insights = insights
	}
	writeJSON(w, http.StatusCreated, payload)
}

// datasetInsights asks the oracle for a short narrative summary of the
// profile. The upload succeeds regardless; a failure here only loses the
// narrative.
func (s *Server) datasetInsights(ctx context.Context, report *profile.Report) string {
	if s.provider == nil || s.builder == nil || report == nil {
		return ""
	}
	messages, err := s.builder.InsightsMessages(report)
	if err != nil {
		common.Logger().Warn("api: insights prompt failed", "error", err)
		return ""
	}
	insights, err := s.provider.Chat(ctx, messages)
	if err != nil {
		common.Logger().Warn("api: insights generation failed", "error", err)
		return ""
	}
	return strings.TrimSpace(insights)
}
