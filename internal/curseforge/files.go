package curseforge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Dig-pestroyer/NyxPatch/internal/globalerrors"
	"github.com/Dig-pestroyer/NyxPatch/internal/httpclient"
	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/Dig-pestroyer/NyxPatch/internal/perf"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

type getFilesResponse struct {
	Data       []File     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type getDownloadURLResponse struct {
	Data string `json:"data"`
}

type getFingerprintsRequest struct {
	Fingerprints []int `json:"fingerprints"`
}

type fingerprintMatch struct {
	ProjectId   int    `json:"id"`
	File        File   `json:"file"`
	LatestFiles []File `json:"latestFiles"`
}

type fingerprintsMatchResult struct {
	ExactMatches          []fingerprintMatch `json:"exactMatches"`
	PartialMatches        []fingerprintMatch `json:"partialMatches"`
	UnmatchedFingerprints json.RawMessage    `json:"unmatchedFingerprints"`
}

type getFingerprintsMatchesResponse struct {
	Data fingerprintsMatchResult `json:"data"`
}

// FileFilter narrows a project's file listing server-side.
type FileFilter struct {
	GameVersion string
	Loader      models.Loader
}

func getPaginatedFilesForProject(ctx context.Context, projectId int, filter FileFilter, client httpclient.Doer, cursor int) (filesResponse *getFilesResponse, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.project.files.list",
		perf.WithAttributes(
			attribute.Int("project_id", projectId),
			attribute.Int("cursor", cursor),
		),
	)
	defer span.End()

	filesURL, _ := url.Parse(fmt.Sprintf("%s/mods/%d/files", GetBaseURL(), projectId))
	values := url.Values{}
	values.Set("index", strconv.Itoa(cursor))
	if filter.GameVersion != "" {
		values.Set("gameVersion", filter.GameVersion)
	}
	if filter.Loader != "" {
		values.Set("modLoaderType", strconv.Itoa(int(LoaderType(filter.Loader))))
	}
	filesURL.RawQuery = values.Encode()

	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, filesURL.String(), nil)
	if err != nil {
		return nil, err
	}

	response, err := client.Do(request)
	if err != nil {
		if httpclient.IsTimeoutError(err) {
			return nil, httpclient.WrapTimeoutError(err)
		}
		return nil, &globalerrors.TransportError{Platform: models.CURSEFORGE, Err: err}
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil && returnErr == nil {
			returnErr = closeErr
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, statusError(response, strconv.Itoa(projectId))
	}

	var decodedFilesResponse getFilesResponse
	err = json.NewDecoder(response.Body).Decode(&decodedFilesResponse)
	if err != nil {
		return nil, globalerrors.ProjectAPIErrorWrap(errors.Wrap(err, "failed to decode response body"), strconv.Itoa(projectId), models.CURSEFORGE)
	}

	return &decodedFilesResponse, nil
}

func GetFilesForProject(ctx context.Context, projectId int, filter FileFilter, client httpclient.Doer) ([]File, error) {
	var files []File
	cursor := 0
	for {
		filesResponse, err := getPaginatedFilesForProject(ctx, projectId, filter, client, cursor)
		if err != nil {
			return nil, err
		}

		files = append(files, filesResponse.Data...)
		if (cursor + filesResponse.Pagination.ResultCount) >= filesResponse.Pagination.TotalCount {
			break
		}
		if filesResponse.Pagination.ResultCount == 0 {
			break
		}

		cursor += filesResponse.Pagination.ResultCount
	}

	return files, nil
}

type getFileResponse struct {
	Data File `json:"data"`
}

func GetFile(ctx context.Context, projectId int, fileId int, client httpclient.Doer) (file *File, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.file.get",
		perf.WithAttributes(
			attribute.Int("project_id", projectId),
			attribute.Int("file_id", fileId),
		),
	)
	defer span.End()

	requestURL := fmt.Sprintf("%s/mods/%d/files/%d", GetBaseURL(), projectId, fileId)
	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}

	response, err := client.Do(request)
	if err != nil {
		if httpclient.IsTimeoutError(err) {
			return nil, httpclient.WrapTimeoutError(err)
		}
		return nil, &globalerrors.TransportError{Platform: models.CURSEFORGE, Err: err}
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil && returnErr == nil {
			returnErr = closeErr
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, statusError(response, strconv.Itoa(projectId))
	}

	var decoded getFileResponse
	err = json.NewDecoder(response.Body).Decode(&decoded)
	if err != nil {
		return nil, globalerrors.ProjectAPIErrorWrap(errors.Wrap(err, "failed to decode response body"), strconv.Itoa(projectId), models.CURSEFORGE)
	}

	return &decoded.Data, nil
}

// GetDownloadURL resolves the short-lived authorized download url for a
// specific file. Some files carry it inline; this endpoint covers the
// ones that do not.
func GetDownloadURL(ctx context.Context, projectId int, fileId int, client httpclient.Doer) (downloadURL string, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.file.download_url",
		perf.WithAttributes(
			attribute.Int("project_id", projectId),
			attribute.Int("file_id", fileId),
		),
	)
	defer span.End()

	requestURL := fmt.Sprintf("%s/mods/%d/files/%d/download-url", GetBaseURL(), projectId, fileId)
	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, requestURL, nil)
	if err != nil {
		return "", err
	}

	response, err := client.Do(request)
	if err != nil {
		if httpclient.IsTimeoutError(err) {
			return "", httpclient.WrapTimeoutError(err)
		}
		return "", &globalerrors.TransportError{Platform: models.CURSEFORGE, Err: err}
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil && returnErr == nil {
			returnErr = closeErr
		}
	}()

	if response.StatusCode != http.StatusOK {
		return "", statusError(response, strconv.Itoa(projectId))
	}

	var decoded getDownloadURLResponse
	err = json.NewDecoder(response.Body).Decode(&decoded)
	if err != nil {
		return "", globalerrors.ProjectAPIErrorWrap(errors.Wrap(err, "failed to decode response body"), strconv.Itoa(projectId), models.CURSEFORGE)
	}

	return decoded.Data, nil
}

func GetFingerprintsMatches(ctx context.Context, fingerprints []int, client httpclient.Doer) (result *FingerprintResult, returnErr error) {
	ctx, span := perf.StartSpan(ctx, "api.curseforge.fingerprints.match", perf.WithAttributes(attribute.Int("fingerprints_count", len(fingerprints))))
	defer span.End()

	requestURL := fmt.Sprintf("%s/fingerprints/%d", GetBaseURL(), Minecraft)

	body, err := json.Marshal(getFingerprintsRequest{Fingerprints: fingerprints})
	if err != nil {
		return nil, err
	}
	timeoutCtx, cancel := httpclient.WithMetadataTimeout(ctx)
	defer cancel()
	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, requestURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	request.Header.Add("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		if httpclient.IsTimeoutError(err) {
			return nil, httpclient.WrapTimeoutError(err)
		}
		return nil, &FingerprintAPIError{
			Lookup: fingerprints,
			Err:    err,
		}
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil && returnErr == nil {
			returnErr = closeErr
		}
	}()

	if response.StatusCode != http.StatusOK {
		return nil, &FingerprintAPIError{
			Lookup: fingerprints,
			Err:    errors.Errorf("unexpected status code: %d", response.StatusCode),
		}
	}

	var fingerprintsResponse getFingerprintsMatchesResponse
	err = json.NewDecoder(response.Body).Decode(&fingerprintsResponse)
	if err != nil {
		return nil, &FingerprintAPIError{
			Lookup: fingerprints,
			Err:    errors.Wrap(err, "failed to decode response body"),
		}
	}

	result = &FingerprintResult{
		Matches:   make([]File, 0),
		Unmatched: make([]int, 0),
	}

	for _, item := range fingerprintsResponse.Data.ExactMatches {
		file := item.File
		if file.Fingerprint == 0 && file.FileFingerprint != 0 {
			file.Fingerprint = file.FileFingerprint
		}
		result.Matches = append(result.Matches, file)
	}

	unmatched, decodeErr := decodeUnmatchedFingerprints(fingerprintsResponse.Data.UnmatchedFingerprints)
	if decodeErr != nil {
		return nil, &FingerprintAPIError{
			Lookup: fingerprints,
			Err:    errors.Wrap(decodeErr, "failed to decode unmatchedFingerprints"),
		}
	}
	result.Unmatched = append(result.Unmatched, unmatched...)

	return result, nil
}

func decodeUnmatchedFingerprints(raw json.RawMessage) ([]int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []int
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var asBoolMap map[string]bool
	if err := json.Unmarshal(raw, &asBoolMap); err == nil {
		return parseUnmatchedMapKeys(asBoolMap)
	}

	var asAnyMap map[string]any
	if err := json.Unmarshal(raw, &asAnyMap); err == nil {
		return parseUnmatchedMapKeys(asAnyMap)
	}

	return nil, errors.Errorf("unsupported type: %s", string(raw))
}

func parseUnmatchedMapKeys[V any](m map[string]V) ([]int, error) {
	out := make([]int, 0, len(m))
	for key := range m {
		value, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out = append(out, value)
	}
	return out, nil
}
