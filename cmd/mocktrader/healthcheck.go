package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/subcommands"
)

type healthcheckCmd struct {
	timeout time.Duration
}

func (*healthcheckCmd) Name() string     { return "healthcheck" }
func (*healthcheckCmd) Synopsis() string { return "probe /healthz of a running server" }
func (*healthcheckCmd) Usage() string {
	return `healthcheck [-timeout <duration>]

  Sends GET localhost:$PORT/healthz and exits 0 on 200, 1 otherwise.
`
}

func (c *healthcheckCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.timeout, "timeout", 3*time.Second, "request timeout")
}

func (c *healthcheckCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := probe(ctx, &http.Client{Timeout: c.timeout}, fmt.Sprintf("http://localhost:%s/healthz", port)); err != nil {
		fmt.Fprintln(os.Stderr, "unhealthy:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
