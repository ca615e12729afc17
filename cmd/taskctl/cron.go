package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// RetryLaterError reports that the API asked the scheduler to come back later
type RetryLaterError struct {
	RetryAfter string
	Body       string
}

func (e *RetryLaterError) Error() string {
	return fmt.Sprintf("server busy, retry after %ss: %s", e.RetryAfter, e.Body)
}

func newCronCommand(use, short, path string) *cobra.Command {
	var (
		baseURL string
		secret  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("CRON_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("a cron secret is required (--secret or CRON_SECRET)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			return postCron(ctx, http.DefaultClient, baseURL, path, secret, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", defaultBaseURL(), "API base URL")
	cmd.Flags().StringVar(&secret, "secret", "", "Cron bearer secret (defaults to CRON_SECRET)")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Request timeout")
	return cmd
}

func defaultBaseURL() string {
	if v := os.Getenv("TASKFLOW_API_URL"); v != "" {
		return v
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

// postCron triggers one maintenance endpoint and copies the response body to out.
func postCron(ctx context.Context, client *http.Client, baseURL, path, secret string, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RetryLaterError{RetryAfter: resp.Header.Get("Retry-After"), Body: strings.TrimSpace(string(body))}
	case resp.StatusCode >= 300:
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Fprintln(out, strings.TrimSpace(string(body)))
	return nil
}
