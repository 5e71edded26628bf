package curseforge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/globalerrors"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type getProjectResponse struct {
	Data Project `json:"data"`
}

type searchProjectsResponse struct {
	Data       []Project  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func GetProject(ctx context.Context, projectId string, client httpclient.Doer) (*Project, error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.project.get", perf.WithAttributes(attribute.String("project_id", projectId)))
	defer span.End()

	requestURL := fmt.Sprintf("%s/mods/%s", GetBaseURL(), projectId)
	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, _ := http.NewRequestWithContext(timeoutCtx, http.MethodGet, requestURL, nil)

	response, err := client.Do(request)
	if err != nil {
		if httpclient.IsTimeoutError(err) {
			return nil, httpclient.WrapTimeoutError(err)
		}
		return nil, &globalerrors.TransportError{Platform: models.CURSEFORGE, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, statusError(response, projectId)
	}

	var projectResponse getProjectResponse
	err = json.NewDecoder(response.Body).Decode(&projectResponse)
	if err != nil {
		return nil, globalerrors.ProjectAPIErrorWrap(errors.Wrap(err, "failed to decode response body"), projectId, models.CURSEFORGE)
	}

	return &projectResponse.Data, nil
}

// SearchProjects looks a mod up by name within the Mods class of the
// Minecraft game. Results come back in the api's relevance order.
func SearchProjects(ctx context.Context, query string, loader models.Loader, gameVersion string, client httpclient.Doer) ([]Project, error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.project.search", perf.WithAttributes(attribute.String("query", query)))
	defer span.End()

	searchURL, _ := url.Parse(fmt.Sprintf("%s/mods/search", GetBaseURL()))
	values := url.Values{}
	values.Set("gameId", strconv.Itoa(int(Minecraft)))
	values.Set("classId", strconv.Itoa(ModsClassID))
	values.Set("searchFilter", query)
	values.Set("gameVersion", gameVersion)
	values.Set("modLoaderType", strconv.Itoa(int(LoaderType(loader))))
	searchURL.RawQuery = values.Encode()

	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, _ := http.NewRequestWithContext(timeoutCtx, http.MethodGet, searchURL.String(), nil)

	response, err := client.Do(request)
	if err != nil {
		if httpclient.IsTimeoutError(err) {
			return nil, httpclient.WrapTimeoutError(err)
		}
		return nil, &globalerrors.TransportError{Platform: models.CURSEFORGE, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, statusError(response, query)
	}

	var searchResponse searchProjectsResponse
	err = json.NewDecoder(response.Body).Decode(&searchResponse)
	if err != nil {
		return nil, globalerrors.ProjectAPIErrorWrap(errors.Wrap(err, "failed to decode response body"), query, models.CURSEFORGE)
	}

	return searchResponse.Data, nil
}

func statusError(response *http.Response, projectId string) error {
	switch response.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &globalerrors.AuthRequiredError{Platform: models.CURSEFORGE}
	case http.StatusTooManyRequests:
		return &globalerrors.RateLimitedError{
			Platform:   models.CURSEFORGE,
			RetryAfter: retryAfter(response.Header),
		}
	case http.StatusNotFound:
		return &globalerrors.ProjectNotFoundError{
			ProjectID: projectId,
			Platform:  models.CURSEFORGE,
		}
	default:
		return globalerrors.ProjectAPIErrorWrap(errors.Errorf("unexpected status code: %d", response.StatusCode), projectId, models.CURSEFORGE)
	}
}

func retryAfter(header http.Header) time.Duration {
	seconds, err := strconv.Atoi(header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
