package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/go-apifetch/fetch"
)

// MockTransport provides a testify-based mock implementation of fetch.Transport.
// Every request is recorded, so tests can inspect what the fetcher sent.
//
// Example usage:
//
//	tr := &mocks.MockTransport{}
//	tr.ExpectResponseOnce(&fetch.RawResponse{StatusCode: 503})
//	tr.ExpectResponse(&fetch.RawResponse{StatusCode: 200, Body: []byte(`{}`)})
//
//	f, _ := fetch.NewBuilder(log).WithTransport(tr).Build()
type MockTransport struct {
	mock.Mock

	mu       sync.Mutex
	requests []*fetch.TransportRequest
}

// Do implements fetch.Transport
func (m *MockTransport) Do(ctx context.Context, req *fetch.TransportRequest) (*fetch.RawResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	arguments := m.Called(ctx, req)

	var resp *fetch.RawResponse
	if r := arguments.Get(0); r != nil {
		resp = r.(*fetch.RawResponse)
	}
	return resp, arguments.Error(1)
}

// Requests returns the requests received so far, in order.
func (m *MockTransport) Requests() []*fetch.TransportRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*fetch.TransportRequest(nil), m.requests...)
}

// ExpectResponse answers every call with resp.
func (m *MockTransport) ExpectResponse(resp *fetch.RawResponse) *mock.Call {
	return m.On("Do", mock.Anything, mock.Anything).Return(resp, nil)
}

// ExpectResponseOnce answers the next unmatched call with resp.
// Calls registered this way are consumed in registration order.
func (m *MockTransport) ExpectResponseOnce(resp *fetch.RawResponse) *mock.Call {
	return m.ExpectResponse(resp).Once()
}

// ExpectError fails every call with err.
func (m *MockTransport) ExpectError(err error) *mock.Call {
	return m.On("Do", mock.Anything, mock.Anything).Return(nil, err)
}

// ExpectRequest answers calls for method and url with resp.
func (m *MockTransport) ExpectRequest(method, url string, resp *fetch.RawResponse) *mock.Call {
	return m.On("Do", mock.Anything, mock.MatchedBy(func(req *fetch.TransportRequest) bool {
		return req.Method == method && req.URL == url
	})).Return(resp, nil)
}
