package modrinth

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

type ProjectStatus string
type ProjectType string
type ProjectEnvironment string

const (
	Approved ProjectStatus = "approved"
	Rejected ProjectStatus = "rejected"
	Pending  ProjectStatus = "pending"
)

const (
	Mod          ProjectType = "mod"
	Modpack      ProjectType = "modpack"
	ResourcePack ProjectType = "resourcepack"
	Datapack     ProjectType = "datapack"
	Shader       ProjectType = "shader"
)

const (
	Required    ProjectEnvironment = "required"
	Optional    ProjectEnvironment = "optional"
	Unsupported ProjectEnvironment = "unsupported"
)

type Project struct {
	Id           string             `json:"id"`
	Title        string             `json:"title"`
	Slug         string             `json:"slug"`
	Description  string             `json:"description"`
	Categories   []string           `json:"categories"`
	ClientSide   ProjectEnvironment `json:"client_side"`
	ServerSide   ProjectEnvironment `json:"server_side"`
	Status       ProjectStatus      `json:"status"`
	Type         ProjectType        `json:"project_type"`
	GameVersions []string           `json:"game_versions"`
	Loaders      []models.Loader    `json:"loaders"`
}

type SearchHit struct {
	ProjectID string `json:"project_id"`
	Slug      string `json:"slug"`
	Title     string `json:"title"`
}

type searchResponse struct {
	Hits []SearchHit `json:"hits"`
}

func GetProject(ctx context.Context, projectId string, client httpclient.Doer) (*Project, error) {
	ctx, span := perf.StartSpan(ctx, "api.modrinth.project.get", perf.WithAttributes(attribute.String("project_id", projectId)))
	defer span.End()

	requestURL := fmt.Sprintf("%s/v2/project/%s", GetBaseUrl(), projectId)

	request, _ := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)

	response, err := client.Do(request)
	if err != nil {
		return nil, &globalerrors.TransportError{Platform: models.MODRINTH, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, statusError(response, projectId)
	}

	result := &Project{}
	_ = json.NewDecoder(response.Body).Decode(result)
	return result, nil
}

// SearchProjects looks a mod up by name. Results come back in the api's
// relevance order; an empty list is a valid result, not an error.
func SearchProjects(ctx context.Context, query string, loader models.Loader, gameVersion string, client httpclient.Doer) ([]SearchHit, error) {
	ctx, span := perf.StartSpan(ctx, "api.modrinth.project.search", perf.WithAttributes(attribute.String("query", query)))
	defer span.End()

	facets := [][]string{
		{"project_type:mod"},
	}
	if loader != "" {
		facets = append(facets, []string{fmt.Sprintf("categories:%s", loader)})
	}
	if gameVersion != "" {
		facets = append(facets, []string{fmt.Sprintf("versions:%s", gameVersion)})
	}
	facetsJSON, _ := json.Marshal(facets)

	searchURL, _ := url.Parse(fmt.Sprintf("%s/v2/search", GetBaseUrl()))
	values := url.Values{}
	values.Set("query", query)
	values.Set("facets", string(facetsJSON))
	searchURL.RawQuery = values.Encode()

	request, _ := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)

	response, err := client.Do(request)
	if err != nil {
		return nil, &globalerrors.TransportError{Platform: models.MODRINTH, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, statusError(response, query)
	}

	result := &searchResponse{}
	_ = json.NewDecoder(response.Body).Decode(result)
	return result.Hits, nil
}

func statusError(response *http.Response, projectId string) error {
	switch response.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &globalerrors.AuthRequiredError{Platform: models.MODRINTH}
	case http.StatusTooManyRequests:
		return &globalerrors.RateLimitedError{
			Platform:   models.MODRINTH,
			RetryAfter: retryAfter(response.Header),
		}
	case http.StatusNotFound:
		return &globalerrors.ProjectNotFoundError{
			ProjectID: projectId,
			Platform:  models.MODRINTH,
		}
	default:
		return globalerrors.ProjectAPIErrorWrap(errors.Errorf("unexpected status code: %d", response.StatusCode), projectId, models.MODRINTH)
	}
}

func retryAfter(header http.Header) time.Duration {
	seconds, err := strconv.Atoi(header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
