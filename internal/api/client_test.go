package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osm-exports/exportctl/internal/auth"
	"github.com/osm-exports/exportctl/internal/models"
)

func testClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, auth.StaticProvider("test-token"), opts...)
}

func TestOffset(t *testing.T) {
	tests := []struct {
		page, pageSize, want int
	}{
		{1, 5, 0},
		{2, 5, 5},
		{3, 5, 10},
		{0, 5, 0},
		{-3, 5, 0},
	}
	for _, tt := range tests {
		if got := Offset(tt.page, tt.pageSize); got != tt.want {
			t.Fatalf("Offset(%d, %d): expected %d, got %d", tt.page, tt.pageSize, tt.want, got)
		}
	}
}

func TestListRegionsQuery(t *testing.T) {
	var gotQuery map[string]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/hdx_export_regions", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		gotQuery = map[string]string{
			"limit":  r.URL.Query().Get("limit"),
			"offset": r.URL.Query().Get("offset"),
			"search": r.URL.Query().Get("search"),
		}
		json.NewEncoder(w).Encode(RegionPage{Count: 12, Results: []*models.ExportRegion{{ID: 1, Name: "A"}}})
	}))

	page, err := client.ListRegions(context.Background(), map[string]string{"search": "senegal"}, 3)
	require.NoError(t, err)
	require.Equal(t, 12, page.Count)
	require.Len(t, page.Results, 1)
	require.Equal(t, "5", gotQuery["limit"])
	require.Equal(t, "10", gotQuery["offset"])
	require.Equal(t, "senegal", gotQuery["search"])
}

func TestGetRegionNormalizes(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/hdx_export_regions/7", r.URL.Path)
		w.Write([]byte(`{
			"id": 7,
			"name": "Senegal",
			"job_uid": "job-7",
			"simplified_geom": {"type": "Polygon", "coordinates": []},
			"last_run": null,
			"next_run": null
		}`))
	}))

	region, err := client.GetRegion(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), region.ID)
	require.NotNil(t, region.SimplifiedGeom)
	require.Equal(t, int64(7), region.SimplifiedGeom.ID)
	require.Nil(t, region.LastRun)
	require.Nil(t, region.NextRun)
}

func TestGetRegionNotFound(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "Not found."}`, http.StatusNotFound)
	}))

	_, err := client.GetRegion(context.Background(), 99)
	require.ErrorIs(t, err, ErrRegionNotFound)
}

func TestCreateRegion(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, contentType, r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "Test", payload["name"])
		require.Equal(t, "Flood Response", payload["event"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 42, "name": "Test", "job_uid": "job-42"}`))
	}))

	region, err := client.CreateRegion(context.Background(), &models.RegionPayload{
		Name:        "Test",
		ProjectName: "Flood Response",
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), region.ID)
	require.Equal(t, "job-42", region.JobUID)
}

func TestCreateRegionValidationError(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"non_field_errors": ["Schedule conflicts with an existing export."], "name": ["This field may not be blank."]}`))
	}))

	_, err := client.CreateRegion(context.Background(), &models.RegionPayload{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "Schedule conflicts with an existing export.", ve.Message)
	require.Equal(t, []string{"This field may not be blank."}, ve.FieldErrors["name"])
}

func TestUpdateRegionUnstructuredFailure(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/hdx_export_regions/7", r.URL.Path)
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))

	_, err := client.UpdateRegion(context.Background(), 7, &models.RegionPayload{Name: "Test"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadGateway, httpErr.StatusCode)

	var ve *ValidationError
	require.False(t, errors.As(err, &ve))
}

func TestDeleteRegion(t *testing.T) {
	var method, path string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.DeleteRegion(context.Background(), 7))
	require.Equal(t, http.MethodDelete, method)
	require.Equal(t, "/api/hdx_export_regions/7", path)
}

func TestTriggerRun(t *testing.T) {
	var gotJob string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/runs", r.URL.Path)
		gotJob = r.URL.Query().Get("job_uid")
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.TriggerRun(context.Background(), "job-7"))
	require.Equal(t, "job-7", gotJob)
}

func TestListRuns(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "job-7", r.URL.Query().Get("job_uid"))
		w.Write([]byte(`[
			{"uid": "run-2", "status": "RUNNING", "elapsed_time": 12.5},
			{"uid": "run-1", "status": "COMPLETED", "size": 1536000}
		]`))
	}))

	runs, err := client.ListRuns(context.Background(), "job-7")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, models.RunRunning, runs[0].Status)
	require.Equal(t, int64(1536000), runs[1].SizeBytes)
}

func TestTokenFailureShortCircuits(t *testing.T) {
	called := false
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	client.tokens = auth.StaticProvider("")

	_, err := client.GetRegion(context.Background(), 1)
	require.ErrorIs(t, err, auth.ErrNoToken)
	require.False(t, called)
}
