package directory

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	model "github.com/zhouzirui/user-directory/backend/internal/model/directory"
)

// DefaultEndpoint is the users collection the directory was built against.
const DefaultEndpoint = "https://jsonplaceholder.typicode.com/users"

// Fetcher loads the full users collection.
type Fetcher interface {
	FetchUsers(ctx context.Context) ([]model.UserRecord, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]model.UserRecord, error)

// FetchUsers calls f.
func (f FetcherFunc) FetchUsers(ctx context.Context) ([]model.UserRecord, error) {
	return f(ctx)
}

// HTTPFetcher issues a single GET against the users endpoint. It never
// retries.
type HTTPFetcher struct {
	client   *resty.Client
	endpoint string
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout leaves the request
// unbounded, so a hung upstream keeps the view loading.
func NewHTTPFetcher(endpoint string, timeout time.Duration) *HTTPFetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	c := resty.New().
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if timeout > 0 {
		c.SetTimeout(timeout)
	}

	return &HTTPFetcher{client: c, endpoint: endpoint}
}

// Endpoint returns the URL the fetcher requests.
func (f *HTTPFetcher) Endpoint() string {
	return f.endpoint
}

// FetchUsers performs the request and decodes the body. All failures are
// returned as *FetchError.
func (f *HTTPFetcher) FetchUsers(ctx context.Context) ([]model.UserRecord, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.endpoint)
	if err != nil {
		return nil, &FetchError{Stage: StageTransport, Endpoint: f.endpoint, Err: err}
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &FetchError{Stage: StageStatus, Endpoint: f.endpoint, Status: resp.StatusCode()}
	}

	records, err := model.DecodeRecords(resp.Body())
	if err != nil {
		return nil, &FetchError{Stage: StageDecode, Endpoint: f.endpoint, Status: resp.StatusCode(), Err: err}
	}
	return records, nil
}
