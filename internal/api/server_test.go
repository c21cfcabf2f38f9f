package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/repository"
	"github.com/amirulm/aidlog/internal/repository/mocks"
)

func doRequest(t *testing.T, repo *mocks.ActivityRepository, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, &mocks.ActivityRepository{}, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestListActivities(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	recs := []activity.Record{
		{ID: "a", Title: "Agihan", Type: activity.TypeDistribution, OccurredAt: time.Now()},
		{ID: "b", Title: "Kelas", Type: activity.TypeClass, OccurredAt: time.Now()},
	}
	repo.On("ListRecent", mock.Anything, 50, 0).Return(recs, nil)

	rec := doRequest(t, repo, "/api/activities")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Activities []activity.Record `json:"activities"`
		Count      int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Activities, 2)
	assert.Equal(t, "Agihan", body.Activities[0].Title)
}

func TestListClampsLimit(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("ListRecent", mock.Anything, 200, 10).Return([]activity.Record{}, nil)

	rec := doRequest(t, repo, "/api/activities?limit=9999&offset=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestListIgnoresBadQueryValues(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("ListRecent", mock.Anything, 50, 0).Return([]activity.Record{}, nil)

	rec := doRequest(t, repo, "/api/activities?limit=abc&offset=-3")
	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestGetActivityByPrefix(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	stored := &activity.Record{ID: "abc12345-full", Title: "Agihan"}
	repo.On("ResolveID", mock.Anything, "abc1").Return("abc12345-full", nil)
	repo.On("Get", mock.Anything, "abc12345-full").Return(stored, nil)

	rec := doRequest(t, repo, "/api/activities/abc1")
	require.Equal(t, http.StatusOK, rec.Code)

	var out activity.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "abc12345-full", out.ID)
	assert.Equal(t, "Agihan", out.Title)
}

func TestGetActivityNotFound(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("ResolveID", mock.Anything, "nope").Return("", repository.ErrNotFound)

	rec := doRequest(t, repo, "/api/activities/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestGetActivityAmbiguousPrefix(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	repo.On("ResolveID", mock.Anything, "a").Return("", repository.ErrAmbiguousID)

	rec := doRequest(t, repo, "/api/activities/a")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "more than one")
}
