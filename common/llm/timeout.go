package llm

import (
	"context"
	"fmt"
	"time"
)

type timeoutClient struct {
	next    AgentClient
	timeout time.Duration
}

// WithTimeout bounds every ChatWithTools call on client by d.
// A call that runs past d returns an error wrapping context.DeadlineExceeded.
func WithTimeout(client AgentClient, d time.Duration) AgentClient {
	if d <= 0 {
		return client
	}
	return &timeoutClient{next: client, timeout: d}
}

func (c *timeoutClient) ChatWithTools(ctx context.Context, req AgentRequest) (*AgentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		resp *AgentResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.next.ChatWithTools(ctx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("llm call exceeded %s: %w", c.timeout, ctx.Err())
	}
}

func (c *timeoutClient) Model() string {
	return c.next.Model()
}
