package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adpilot/internal/adseditor"
)

// handleExportCSV handles GET /api/v1/export/editor-csv. The sheet is
// built in memory first so a failed export never leaks a half-written
// download.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var opts adseditor.Options

	ids, err := queryUints(r, "campaign_ids")
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	opts.CampaignIDs = ids

	if raw := strings.TrimSpace(r.URL.Query().Get("match_types")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			mt, ok := matchTypeFrom(strings.TrimSpace(part))
			if !ok {
				s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid export request",
					map[string]string{"match_types": fmt.Sprintf("unknown match type %q", part)})
				return
			}
			opts.MatchTypes = append(opts.MatchTypes, mt)
		}
	}

	var buf bytes.Buffer
	rows, err := s.exporter.Export(r.Context(), &buf, opts)
	if err != nil {
		s.log.Error().Err(err).Msg("Ads Editor export failed")
		s.sendError(w, http.StatusInternalServerError, codeInternal, "export failed")
		return
	}
	if s.metrics != nil {
		s.metrics.ExportRowsTotal.Add(float64(rows))
	}

	filename := fmt.Sprintf("ads-editor-%s.csv", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleImportCSV handles POST /api/v1/import/editor-csv. The sheet
// arrives either as a multipart upload under the "file" field or as a
// raw CSV body. Row-level problems land in the result, not the
// envelope error; only an unusable sheet fails the request.
func (s *Server) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			s.sendErrorDetails(w, http.StatusBadRequest, codeValidation, "invalid upload",
				map[string]string{"file": "required"})
			return
		}
		defer file.Close()
		src = file
	}

	result, err := s.importer.Import(r.Context(), src)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	s.sendData(w, http.StatusOK, result)
}

type sheetsSyncResult struct {
	PerformanceRows int `json:"performance_rows"`
	SearchTermRows  int `json:"search_term_rows"`
}

// handleSheetsSync handles POST /api/v1/sheets/sync
func (s *Server) handleSheetsSync(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		s.sendError(w, http.StatusServiceUnavailable, codeNotConfigured, "google sheets sync is not configured")
		return
	}

	var result sheetsSyncResult
	var err error

	result.PerformanceRows, err = s.sheets.PullPerformance(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Performance pull failed")
		s.sendError(w, http.StatusBadGateway, codeSheetsError, "pulling performance rows failed")
		return
	}
	result.SearchTermRows, err = s.sheets.PullSearchTerms(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Search term pull failed")
		s.sendErrorDetails(w, http.StatusBadGateway, codeSheetsError, "pulling search terms failed",
			map[string]int{"performance_rows": result.PerformanceRows})
		return
	}

	if s.metrics != nil {
		s.metrics.SheetsRowsPulledTotal.WithLabelValues("performance").Add(float64(result.PerformanceRows))
		s.metrics.SheetsRowsPulledTotal.WithLabelValues("search_terms").Add(float64(result.SearchTermRows))
	}
	s.sendData(w, http.StatusOK, result)
}
