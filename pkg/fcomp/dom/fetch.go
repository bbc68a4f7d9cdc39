package dom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	fcerrors "github.com/randalmurphal/fcomp/pkg/fcomp/errors"
)

// maxTemplateBytes bounds how much of a template response is read.
const maxTemplateBytes = 4 << 20

// FetchTemplate downloads and parses a template. A non-2xx response fails
// with *errors.HTTPError whose Message is the response body, and a request
// that times out fails with *errors.TimeoutError. Transient failures are
// retried according to retry.
func FetchTemplate(ctx context.Context, client *http.Client, url string, retry fcerrors.RetryConfig) (*Template, error) {
	if client == nil {
		client = http.DefaultClient
	}
	res := fcerrors.WithRetryContext(ctx, retry, func(ctx context.Context) (*Template, error) {
		return fetchOnce(ctx, client, url)
	})
	return res.Value, res.Err
}

func fetchOnce(ctx context.Context, client *http.Client, url string) (*Template, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fcerrors.Permanent(err, "build template request")
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &fcerrors.TimeoutError{Operation: "fetch " + url, Duration: timeoutLimit(ctx, client), Err: err}
		}
		return nil, fcerrors.Transient(err, "fetch template")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTemplateBytes))
	if err != nil {
		return nil, fcerrors.Transient(err, "read template body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &fcerrors.HTTPError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: url}
	}

	t, err := ParseTemplate(string(body))
	if err != nil {
		return nil, fcerrors.Permanent(fmt.Errorf("%s: %w", url, err), "parse template")
	}
	return t, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout())
}

// timeoutLimit names the limit that expired for the error message.
func timeoutLimit(ctx context.Context, client *http.Client) string {
	if client.Timeout > 0 {
		return client.Timeout.String()
	}
	if _, ok := ctx.Deadline(); ok {
		return "context deadline"
	}
	return "transport timeout"
}
