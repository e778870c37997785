package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations"
	apperrors "freight-portal/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", 2*time.Second, zap.NewNop())
}

func TestListRecordsPostsGetList(t *testing.T) {
	var gotPath string
	var gotBody integrations.ListRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`[{"branchId":1,"branchName":"Karachi"},{"branchId":2,"branchName":"Lahore"}]`))
	})

	list, err := c.ListRecords(context.Background(), "Branch", integrations.DefaultListRequest())
	require.NoError(t, err)
	assert.Equal(t, "POST /api/Branch/GetList", gotPath)
	assert.Equal(t, "*", gotBody.Select)
	assert.Equal(t, 1, gotBody.Page)
	require.Len(t, list, 2)
	assert.Equal(t, "Lahore", list[1]["branchName"])
}

func TestListRecordsEmptyBodyIsEmptyList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})

	list, err := c.ListRecords(context.Background(), "Branch", integrations.DefaultListRequest())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCreateAndUpdateUseExpectedVerbs(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		var rec entities.Record
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &rec)
		rec["branchId"] = 7
		_ = json.NewEncoder(w).Encode(rec)
	})

	created, err := c.CreateRecord(context.Background(), "Branch", entities.Record{"branchName": "Multan"})
	require.NoError(t, err)
	assert.Equal(t, float64(7), created["branchId"])

	_, err = c.UpdateRecord(context.Background(), "Branch", entities.Record{"branchId": 7, "branchName": "Multan 2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"POST /api/Branch", "PUT /api/Branch"}, methods)
}

func TestNon2xxBecomesNetworkErrorWithMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Branch code already exists"}`))
	})

	_, err := c.CreateRecord(context.Background(), "Branch", entities.Record{})
	var netErr *apperrors.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, http.StatusBadRequest, netErr.Status)
	assert.Equal(t, "Branch code already exists", netErr.UserMessage())
}

func TestConflictIsDetectable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := c.UpdateRecord(context.Background(), "Branch", entities.Record{"branchId": 1})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestEnvelopeErrorOn200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statusCode":400,"message":"Invalid city"}`))
	})

	_, err := c.CreateRecord(context.Background(), "Branch", entities.Record{})
	var netErr *apperrors.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, "Invalid city", netErr.Message)
}

func TestDeleteWrapsFailure(t *testing.T) {
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.DeleteRecord(context.Background(), "Branch", "42")
	assert.Equal(t, "DELETE /api/Branch/42", path)

	var delErr *apperrors.DeleteError
	require.True(t, errors.As(err, &delErr))
	assert.Equal(t, "42", delErr.ID)

	var netErr *apperrors.NetworkError
	assert.True(t, errors.As(err, &netErr))
}

func TestUnreachableBackend(t *testing.T) {
	c := New("http://127.0.0.1:1/api/", 500*time.Millisecond, zap.NewNop())

	_, err := c.ListRecords(context.Background(), "Branch", integrations.DefaultListRequest())
	var netErr *apperrors.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.Status)
	assert.Equal(t, "Сервер недоступен, попробуйте позже", (&apperrors.NetworkError{}).UserMessage())
}
