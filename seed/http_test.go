package seed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockHTTPClient struct {
	mock.Mock
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

func TestHTTPProvider_NewSource(t *testing.T) {
	t.Parallel()

	provider := &HTTPProvider{&MockHTTPClient{}}

	tests := []struct {
		url     string
		wantErr bool
		desc    string
	}{
		// Valid cases
		{"http://test.com", false, "basic HTTP URL"},
		{"https://test.com", false, "basic HTTPS URL"},
		{"  http://test.com   ", false, "URL with whitespace"},
		{"http://test.com/path?arg=1&arg2=2", false, "URL with path and query"},
		{"http://test.com:8080", false, "URL with port"},
		{"http://localhost:8080/test", false, "localhost with port"},
		{"http://123.123.123.123/test", false, "IP address"},
		{"http://mylocalnet/test", false, "single label hostname"},

		// Invalid cases
		{"", true, "empty string"},
		{" ", true, "whitespace only"},
		{"_", true, "invalid character"},
		{"ftp://test.com", true, "different scheme rejected"},
		{"test.com", true, "missing scheme"},
		{"http://user@test.com/path", true, "URL with user info"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			src, err := provider.NewSource(createCfg(tt.url))

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, src)
			} else {
				require.NoError(t, err)
				require.NotNil(t, src)
				assert.IsType(t, &HTTPAdapter{}, src)
			}
		})
	}
}

func TestHTTPAdapter_Open(t *testing.T) {
	t.Parallel()

	t.Run("successful request with headers", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "secret", r.Header.Get("X-Token"))
			_, _ = io.WriteString(w, "served body")
		}))
		defer srv.Close()

		provider := &HTTPProvider{srv.Client()}
		src, err := provider.NewSource(createCfgWithOpts(srv.URL, nil, map[string]string{"X-Token": "secret"}))
		require.NoError(t, err)

		rc, err := src.Open(context.Background())
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "served body", string(body))
	})

	t.Run("custom method", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
		}))
		defer srv.Close()

		method := HTTPMethodPost
		src, err := (&HTTPProvider{srv.Client()}).NewSource(createCfgWithOpts(srv.URL, &method, nil))
		require.NoError(t, err)
		rc, err := src.Open(context.Background())
		require.NoError(t, err)
		rc.Close()
	})

	t.Run("HTTP error status", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		src, err := (&HTTPProvider{srv.Client()}).NewSource(createCfg(srv.URL))
		require.NoError(t, err)
		_, err = src.Open(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("network error", func(t *testing.T) {
		t.Parallel()
		client := &MockHTTPClient{}
		netErr := errors.New("connection refused")
		client.On("Do", mock.Anything).Return(nil, netErr)

		src, err := (&HTTPProvider{client}).NewSource(createCfg("http://test.com/file"))
		require.NoError(t, err)
		_, err = src.Open(context.Background())
		assert.ErrorIs(t, err, netErr)
		client.AssertExpectations(t)
	})
}

// Test helpers

func createCfg(url string) []byte {
	return createCfgWithOpts(url, nil, nil)
}

func createCfgWithOpts(url string, method *HTTPMethod, headers map[string]string) []byte {
	config := struct {
		Type string `json:"type"`
		HTTPSource
	}{
		Type: HTTPSourceType,
		HTTPSource: HTTPSource{
			URL:     url,
			Method:  method,
			Headers: headers,
		},
	}
	data, _ := json.Marshal(config)
	return data
}
