// Package e2e provides end-to-end tests for the record service.
// The real application handler runs in an `httptest.Server` and the suite talks to it over HTTP.
// Each test gets a fresh server and store, so ids always start at 1.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/abgdnv/recordstore/internal/platform/web"
	"github.com/abgdnv/recordstore/internal/record/app"
	"github.com/abgdnv/recordstore/internal/record/service"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "RECORDS_SKIP_E2E_TESTS"

// recordsURL is the base URL for the records API.
const recordsURL = "/api/v1/records"

// RecordServiceE2ESuite is a test suite for end-to-end tests of the record service.
type RecordServiceE2ESuite struct {
	suite.Suite
	server     *httptest.Server
	httpClient *http.Client
	logger     *slog.Logger
	ctx        context.Context
}

func (s *RecordServiceE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	s.httpClient = &http.Client{}
}

// SetupTest starts a new server over an empty store.
func (s *RecordServiceE2ESuite) SetupTest() {
	if s.server != nil {
		s.server.Close()
	}
	deps := app.SetupDependencies(s.logger)
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
}

func (s *RecordServiceE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
}

func TestRecordServiceE2E(t *testing.T) {
	// Skip integration tests if the environment variable is set
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping integration tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(RecordServiceE2ESuite))
}

// --------------------------------------------------------------------------
// ------------------------ Helper methods for E2E tests --------------------
// --------------------------------------------------------------------------

// listRecords fetches the grouped record list.
func (s *RecordServiceE2ESuite) listRecords() (service.RecordListDto, int) {
	s.T().Helper()
	body, status := s.doRequest(http.MethodGet, s.server.URL+recordsURL, "", nil)
	var list service.RecordListDto
	if status == http.StatusOK {
		require.NoError(s.T(), json.Unmarshal(body, &list), "Failed to decode list response")
	}
	return list, status
}

// createJSON posts payload as a JSON object and returns the raw body and status.
func (s *RecordServiceE2ESuite) createJSON(payload map[string]any) ([]byte, int) {
	s.T().Helper()
	b, err := json.Marshal(payload)
	require.NoError(s.T(), err)
	return s.doRequest(http.MethodPost, s.server.URL+recordsURL, "application/json", bytes.NewReader(b))
}

// createForm posts values as an urlencoded form.
func (s *RecordServiceE2ESuite) createForm(values url.Values) ([]byte, int) {
	s.T().Helper()
	return s.doRequest(http.MethodPost, s.server.URL+recordsURL, "application/x-www-form-urlencoded",
		strings.NewReader(values.Encode()))
}

func (s *RecordServiceE2ESuite) doRequest(method, url, contentType string, body io.Reader) ([]byte, int) {
	s.T().Helper()
	req, err := http.NewRequestWithContext(s.ctx, method, url, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		err := resp.Body.Close()
		require.NoError(s.T(), err, "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")
	return bodyBytes, resp.StatusCode
}

// --------------------------------------------------------------
// ---------------------- E2E test methods ----------------------
// --------------------------------------------------------------

func (s *RecordServiceE2ESuite) TestList_Empty_E2E() {
	// when
	list, status := s.listRecords()

	// then
	s.Equal(http.StatusOK, status)
	s.Empty(list.Product)
	s.Empty(list.Service)
	s.Empty(list.Subscription)
}

func (s *RecordServiceE2ESuite) TestCreateAndList_E2E() {
	// given
	body, status := s.createJSON(map[string]any{"type": "product", "name": "Widget", "price": 9.99})
	s.Require().Equal(http.StatusCreated, status, string(body))
	s.JSONEq(`{"id":1,"type":"product","name":"Widget","price":9.99}`, string(body))

	body, status = s.createJSON(map[string]any{"type": "service", "name": "Haircut", "duration": 30})
	s.Require().Equal(http.StatusCreated, status, string(body))
	s.JSONEq(`{"id":1,"type":"service","name":"Haircut"}`, string(body))

	body, status = s.createForm(url.Values{"type": {"subscription"}, "name": {"Gold"}, "price": {"20"}, "frequency": {"monthly"}})
	s.Require().Equal(http.StatusCreated, status, string(body))
	s.JSONEq(`{"id":1,"type":"subscription","name":"Gold","price":20}`, string(body))

	body, status = s.createJSON(map[string]any{"type": "product", "name": "Gadget", "price": "2.5"})
	s.Require().Equal(http.StatusCreated, status, string(body))
	s.JSONEq(`{"id":2,"type":"product","name":"Gadget","price":2.5}`, string(body))

	// when
	list, status := s.listRecords()

	// then
	s.Equal(http.StatusOK, status)
	s.Equal([]service.ProductDto{{ID: 1, Name: "Widget", Price: 9.99}, {ID: 2, Name: "Gadget", Price: 2.5}}, list.Product)
	s.Equal([]service.ServiceDto{{ID: 1, Name: "Haircut", Duration: 30}}, list.Service)
	s.Equal([]service.SubscriptionDto{{ID: 1, Name: "Gold", Price: 20, Frequency: "monthly"}}, list.Subscription)
}

func (s *RecordServiceE2ESuite) TestCreate_Validation_E2E() {
	testCases := []struct {
		name     string
		payload  map[string]any
		expected string
	}{
		{name: "missing name", payload: map[string]any{"type": "product", "price": 1}, expected: "Invalid name"},
		{name: "whitespace name", payload: map[string]any{"type": "product", "name": " \t ", "price": 1}, expected: "Invalid name"},
		{name: "name checked before type", payload: map[string]any{"type": "widget"}, expected: "Invalid name"},
		{name: "name too long", payload: map[string]any{"type": "product", "name": strings.Repeat("n", 256), "price": 1}, expected: "Invalid name"},
		{name: "unknown type", payload: map[string]any{"type": "widget", "name": "Thing"}, expected: "Invalid type"},
		{name: "zero price", payload: map[string]any{"type": "product", "name": "Widget", "price": 0}, expected: "Invalid price"},
		{name: "text price", payload: map[string]any{"type": "product", "name": "Widget", "price": "cheap"}, expected: "Invalid price"},
		{name: "missing duration", payload: map[string]any{"type": "service", "name": "Haircut"}, expected: "Invalid duration"},
		{name: "fractional duration", payload: map[string]any{"type": "service", "name": "Haircut", "duration": 1.5}, expected: "Invalid duration"},
		{name: "price checked before frequency", payload: map[string]any{"type": "subscription", "name": "Gold", "frequency": "weekly"}, expected: "Invalid price"},
		{name: "weekly frequency", payload: map[string]any{"type": "subscription", "name": "Gold", "price": 5, "frequency": "weekly"}, expected: "Invalid frequency"},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			// when
			body, status := s.createJSON(tc.payload)

			// then
			s.Equal(http.StatusBadRequest, status)
			s.JSONEq(fmt.Sprintf(`{"error":%q}`, tc.expected), string(body))
		})
	}

	list, status := s.listRecords()
	s.Equal(http.StatusOK, status)
	s.Empty(list.Product, "rejected requests must not be stored")
	s.Empty(list.Service)
	s.Empty(list.Subscription)
}

func (s *RecordServiceE2ESuite) TestCreate_InvalidBody_E2E() {
	// when
	body, status := s.doRequest(http.MethodPost, s.server.URL+recordsURL, "application/json", strings.NewReader(`{"name":`))

	// then
	s.Equal(http.StatusBadRequest, status)
	s.JSONEq(`{"error":"Invalid request body"}`, string(body))
}

func (s *RecordServiceE2ESuite) TestCreate_ExponentNumbers_E2E() {
	// given
	post := func(body string) ([]byte, int) {
		return s.doRequest(http.MethodPost, s.server.URL+recordsURL, "application/json", strings.NewReader(body))
	}

	// when
	productBody, productStatus := post(`{"type":"product","name":"Widget","price":1e2}`)
	serviceBody, serviceStatus := post(`{"type":"service","name":"Haircut","duration":3e1}`)
	formBody, formStatus := s.createForm(url.Values{"type": {"product"}, "name": {"Gadget"}, "price": {".5"}})

	// then
	s.Equal(http.StatusCreated, productStatus, string(productBody))
	s.JSONEq(`{"id":1,"type":"product","name":"Widget","price":100}`, string(productBody))
	s.Equal(http.StatusCreated, serviceStatus, string(serviceBody))
	s.Equal(http.StatusCreated, formStatus, string(formBody))
	s.JSONEq(`{"id":2,"type":"product","name":"Gadget","price":0.5}`, string(formBody))

	list, status := s.listRecords()
	s.Equal(http.StatusOK, status)
	s.Equal([]service.ServiceDto{{ID: 1, Name: "Haircut", Duration: 30}}, list.Service)
}

func (s *RecordServiceE2ESuite) TestCreate_EscapesMarkup_E2E() {
	// given
	_, status := s.createJSON(map[string]any{"type": "service", "name": `<b>"Cut" & Style</b>`, "duration": 45})
	s.Require().Equal(http.StatusCreated, status)

	// when
	list, status := s.listRecords()

	// then
	s.Equal(http.StatusOK, status)
	s.Require().Len(list.Service, 1)
	s.Equal("&lt;b&gt;&#34;Cut&#34; &amp; Style&lt;/b&gt;", list.Service[0].Name)
}

func (s *RecordServiceE2ESuite) TestCreate_Concurrent_E2E() {
	// given
	const workers = 20
	var wg sync.WaitGroup
	ids := make(chan int, workers)

	// when
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, _ := json.Marshal(map[string]any{"type": "product", "name": fmt.Sprintf("P%d", i), "price": 1})
			req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.server.URL+recordsURL, bytes.NewReader(payload))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := s.httpClient.Do(req)
			if err != nil {
				return
			}
			defer func() { _ = resp.Body.Close() }()
			var created service.CreatedRecordDto
			if json.NewDecoder(resp.Body).Decode(&created) == nil {
				ids <- created.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	// then
	seen := make(map[int]bool)
	for id := range ids {
		s.False(seen[id], "id %d assigned twice", id)
		seen[id] = true
	}
	s.Len(seen, workers)
	for id := 1; id <= workers; id++ {
		s.True(seen[id], "id %d missing", id)
	}
}

func (s *RecordServiceE2ESuite) TestRequestID_E2E() {
	// given
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.server.URL+"/healthz", nil)
	s.Require().NoError(err)
	req.Header.Set(web.RequestIDHeader, "e2e-request")

	// when
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer func() { _ = resp.Body.Close() }()

	// then
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("e2e-request", resp.Header.Get(web.RequestIDHeader))
}
