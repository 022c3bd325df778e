package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/complytrack/complytrack/internal/httpclient"
)

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// MockHTTPClient implements httpclient.Client for tests. Routes match by
// substring of the request URL; a route may hold a queue of responses so
// retry sequences (401 then 200) can be scripted. Every request is
// recorded for call-count assertions.
type MockHTTPClient struct {
	mu       sync.Mutex
	routes   map[string][]MockResponse
	Requests []httpclient.Request
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string][]MockResponse),
	}
}

// RegisterResponse registers a mock response for URLs containing the fragment
func (m *MockHTTPClient) RegisterResponse(urlFragment string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[urlFragment] = []MockResponse{resp}
}

// RegisterResponses registers an ordered response sequence; each request
// consumes one, and the last response repeats once the queue drains.
func (m *MockHTTPClient) RegisterResponses(urlFragment string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[urlFragment] = resps
}

// CallCount returns the number of requests whose URL contains the fragment
func (m *MockHTTPClient) CallCount(urlFragment string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, req := range m.Requests {
		if strings.Contains(req.URL, urlFragment) {
			count++
		}
	}
	return count
}

// TotalCalls returns the total number of requests seen
func (m *MockHTTPClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Send implements the httpclient.Client interface
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, *req)

	for fragment, queue := range m.routes {
		if !strings.Contains(req.URL, fragment) {
			continue
		}

		resp := queue[0]
		if len(queue) > 1 {
			m.routes[fragment] = queue[1:]
		}

		headers := resp.Headers
		if headers == nil {
			headers = map[string]string{}
		}
		return &httpclient.Response{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Headers:    headers,
		}, nil
	}

	return &httpclient.Response{
		StatusCode: http.StatusNotFound,
		Body:       []byte("Not Found"),
		Headers:    map[string]string{},
	}, nil
}

// Clear removes all registered responses and recorded requests
func (m *MockHTTPClient) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = make(map[string][]MockResponse)
	m.Requests = nil
}
