package directory_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/user-directory/backend/internal/model/directory"
	"github.com/zhouzirui/user-directory/backend/internal/service/directory"
)

const leannePayload = `[{
	"id": 1,
	"name": "Leanne Graham",
	"username": "Bret",
	"email": "Sincere@april.biz",
	"address": {"street": "Kulas Light", "suite": "Apt. 556", "city": "Gwenborough", "zipcode": "92998-3874",
		"geo": {"lat": "-37.3159", "lng": "81.1496"}},
	"phone": "1-770-736-8031 x56442",
	"website": "hildegard.org",
	"company": {"name": "Romaguera-Crona", "catchPhrase": "Multi-layered client-server neural-net", "bs": "harness real-time e-markets"}
}]`

func TestHTTPFetcherSuccess(t *testing.T) {
	var gotMethod, gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(leannePayload))
	}))
	defer upstream.Close()

	fetcher := directory.NewHTTPFetcher(upstream.URL+"/users", 0)
	records, err := fetcher.FetchUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Empty(t, gotQuery)
	assert.Equal(t, []model.UserRecord{leanne()}, records)
}

func TestHTTPFetcherStatusFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	_, err := directory.NewHTTPFetcher(upstream.URL, 0).FetchUsers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, directory.ErrFetchFailed)

	var fetchErr *directory.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, directory.StageStatus, fetchErr.Stage)
	assert.Equal(t, http.StatusNotFound, fetchErr.Status)
}

func TestHTTPFetcherDecodeFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer upstream.Close()

	_, err := directory.NewHTTPFetcher(upstream.URL, 0).FetchUsers(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, directory.ErrFetchFailed)
	assert.ErrorIs(t, err, model.ErrMalformedPayload)

	var fetchErr *directory.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, directory.StageDecode, fetchErr.Stage)
}

func TestHTTPFetcherTransportFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	_, err := directory.NewHTTPFetcher(url, 0).FetchUsers(context.Background())
	require.Error(t, err)

	var fetchErr *directory.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, directory.StageTransport, fetchErr.Stage)
}

func TestHTTPFetcherDefaultEndpoint(t *testing.T) {
	assert.Equal(t, directory.DefaultEndpoint, directory.NewHTTPFetcher("", 0).Endpoint())
}
