package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-transfer-indexer/internal/api/middleware"
	"github.com/feral-file/ff-transfer-indexer/internal/api/server"
	"github.com/feral-file/ff-transfer-indexer/internal/logger"
	"github.com/feral-file/ff-transfer-indexer/internal/messaging"
	mockspkg "github.com/feral-file/ff-transfer-indexer/internal/mocks"
)

func TestMain(m *testing.M) {
	// Initialize logger for tests
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

const apiKey = "ops-key"

// testServerMocks contains all the mocks needed for testing the ops server
type testServerMocks struct {
	ctrl      *gomock.Controller
	store     *mockspkg.MockStore
	publisher *mockspkg.MockPublisher
	router    http.Handler
}

func setupTestServer(t *testing.T) *testServerMocks {
	ctrl := gomock.NewController(t)

	tm := &testServerMocks{
		ctrl:      ctrl,
		store:     mockspkg.NewMockStore(ctrl),
		publisher: mockspkg.NewMockPublisher(ctrl),
	}

	s := server.New(server.Config{
		Auth: middleware.AuthConfig{APIKeys: []string{apiKey}},
	}, tm.store, tm.publisher)
	tm.router = s.Router()

	return tm
}

func (m *testServerMocks) do(method, path, body string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		req.Header.Set("Authorization", "ApiKey "+apiKey)
	}

	rec := httptest.NewRecorder()
	m.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		mocks.store.EXPECT().Ping(gomock.Any()).Return(nil)

		rec := mocks.do(http.MethodGet, "/healthz", "", false)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		mocks.store.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))

		rec := mocks.do(http.MethodGet, "/healthz", "", false)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMetrics(t *testing.T) {
	mocks := setupTestServer(t)
	defer mocks.ctrl.Finish()

	rec := mocks.do(http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestTriggerBlockProcessing(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		rec := mocks.do(http.MethodPost, "/v1/blocks/100/process", "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("queues the block", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		mocks.publisher.EXPECT().
			Publish(gomock.Any(), messaging.CommandProcessBlock, messaging.ProcessBlockPayload{BlockNumber: 100}).
			Return(nil)

		rec := mocks.do(http.MethodPost, "/v1/blocks/100/process", "", true)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "PROCESS_BLOCK", body["command"])
	})

	t.Run("passes the skip flag", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		mocks.publisher.EXPECT().
			Publish(gomock.Any(), messaging.CommandProcessBlock,
				messaging.ProcessBlockPayload{BlockNumber: 100, ShouldSkipProcessingTokens: true}).
			Return(nil)

		rec := mocks.do(http.MethodPost, "/v1/blocks/100/process", `{"shouldSkipProcessingTokens":true}`, true)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("invalid block number", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		rec := mocks.do(http.MethodPost, "/v1/blocks/latest/process", "", true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("publish failure", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		mocks.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded)

		rec := mocks.do(http.MethodPost, "/v1/blocks/100/process", "", true)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestTriggerOwnershipUpdate(t *testing.T) {
	t.Run("queues the checksummed token", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		mocks.publisher.EXPECT().
			Publish(gomock.Any(), messaging.CommandUpdateTokenOwnership, messaging.UpdateTokenOwnershipPayload{
				CollectionAddress: "0x06012c8cf97BEaD5deAe237070F9587f8E7A266d",
				TokenID:           "1500",
			}).
			Return(nil)

		rec := mocks.do(http.MethodPost, "/v1/tokens/0x06012c8cf97bead5deae237070f9587f8e7a266d/1500/ownership", "", true)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("invalid collection", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		rec := mocks.do(http.MethodPost, "/v1/tokens/kitties/1500/ownership", "", true)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("non numeric token id", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		rec := mocks.do(http.MethodPost, "/v1/tokens/0x06012c8cf97bead5deae237070f9587f8e7a266d/abc/ownership", "", true)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		mocks := setupTestServer(t)
		defer mocks.ctrl.Finish()

		rec := mocks.do(http.MethodPost, "/v1/tokens/0x06012c8cf97bead5deae237070f9587f8e7a266d/1/ownership", "", false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
