package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/merchkit/merchsync/internal/domain/model"
)

func TestRouterHealthz(t *testing.T) {
	h, _, _, ctrl := newSyncHandlersWithMocks(t)
	defer ctrl.Finish()

	router := NewRouter(RouterServices{Dispatcher: h.Svc, Jobs: h.Repo})

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRouterServesStatusRoute(t *testing.T) {
	h, mockRepo, _, ctrl := newSyncHandlersWithMocks(t)
	defer ctrl.Finish()

	mockRepo.EXPECT().CountByStatus(gomock.Any(), gomock.Any()).Return(&model.SyncStats{Pending: 2}, nil)

	router := NewRouter(RouterServices{Dispatcher: h.Svc, Jobs: h.Repo})

	r := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterOmitsUnwiredRoutes(t *testing.T) {
	h, _, _, ctrl := newSyncHandlersWithMocks(t)
	defer ctrl.Finish()

	router := NewRouter(RouterServices{Dispatcher: h.Svc, Jobs: h.Repo})

	r := httptest.NewRequest(http.MethodPost, "/api/sync/gaps", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	resp := w.Result()
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
