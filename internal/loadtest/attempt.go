package loadtest

import (
	"context"
	"io"
	"net/http"

	"github.com/praxislabs/warden/internal/forum"
)

// GetAttempt returns an AttemptFunc issuing GET requests against url. The
// response body is drained so connections get reused.
func GetAttempt(client *http.Client, url string) AttemptFunc {
	return func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return resp.StatusCode, nil
	}
}

// TopicAttempt returns an AttemptFunc that creates forum topics with
// payloads drawn from gen.
func TopicAttempt(client *forum.Client, gen *forum.Generator) AttemptFunc {
	return func(ctx context.Context) (int, error) {
		return client.CreateTopic(ctx, gen.Next())
	}
}
