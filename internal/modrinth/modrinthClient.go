// Package modrinth is a typed client for the modrinth api.
package modrinth

import (
	"fmt"
	"net/http"

	"github.com/Dig-pestroyer/NyxPatch/internal/environment"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"go.opentelemetry.io/otel/attribute"
)

const baseURL = "https://api.modrinth.com"

type Client struct {
	client httpclient.Doer
}

func NewClient(doer httpclient.Doer) *Client {
	return &Client{client: doer}
}

func (modrinthClient *Client) Do(request *http.Request) (*http.Response, error) {
	ctx, span := perf.StartSpan(request.Context(), "api.modrinth.http.request", perf.WithAttributes(attribute.String("url", request.URL.String())))
	defer span.End()
	headers := map[string]string{
		"user-agent":    fmt.Sprintf("github_com/Dig-pestroyer/NyxPatch/%s", environment.AppVersion()),
		"Accept":        "application/json",
		"Authorization": environment.ModrinthAPIKey(),
	}

	for key, value := range headers {
		request.Header.Add(key, value)
	}

	return modrinthClient.client.Do(request.WithContext(ctx))
}

func GetBaseUrl() string {
	return baseURL
}
