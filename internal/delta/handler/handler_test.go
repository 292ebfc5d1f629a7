package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"fitgap/internal/delta/handler/mocks"
	"fitgap/internal/delta/models"
	id "fitgap/pkg/domain"
	dErrors "fitgap/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/comparison-mocks.go -package=mocks Service
func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func TestHandleCompare(t *testing.T) {
	baseID := id.SnapshotID(uuid.New())
	compareID := id.SnapshotID(uuid.New())
	path := "/snapshots/" + baseID.String() + "/compare/" + compareID.String()

	comparison := &models.Comparison{
		BaseSnapshotID:    baseID,
		CompareSnapshotID: compareID,
		Report: models.Report{
			GapResolutions: []models.Change{{
				Key:    "gap-1",
				Type:   models.ChangeModified,
				Fields: []models.FieldChange{{Field: "resolutionType", Before: "config", After: "custom"}},
			}},
		},
		Summary: models.Summary{
			GapResolutions: models.Counts{Modified: 1},
			ModifiedCount:  1,
			TotalChanges:   1,
		},
		ComputedAt: time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
	}

	t.Run("serves the cached comparison by default", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Compare(gomock.Any(), baseID, compareID, false).Return(comparison, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		summary := body["summary"].(map[string]any)
		assert.InDelta(t, 1, summary["totalChanges"], 0)
		report := body["report"].(map[string]any)
		gaps := report["gapResolutions"].([]any)
		require.Len(t, gaps, 1)
		assert.Equal(t, "modified", gaps[0].(map[string]any)["type"])
	})

	t.Run("refresh forces recomputation", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Compare(gomock.Any(), baseID, compareID, true).Return(comparison, nil)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path+"?refresh=true", nil))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects a non-boolean refresh", func(t *testing.T) {
		r, _ := newTestRouter(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path+"?refresh=sometimes", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed snapshot IDs", func(t *testing.T) {
		r, _ := newTestRouter(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/snapshots/abc/compare/"+compareID.String(), nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps cross-assessment comparisons to validation errors", func(t *testing.T) {
		r, svc := newTestRouter(t)
		svc.EXPECT().Compare(gomock.Any(), baseID, compareID, false).
			Return(nil, dErrors.New(dErrors.CodeValidation, "snapshots belong to different assessments"))

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
