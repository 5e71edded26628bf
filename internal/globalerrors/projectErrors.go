// Package globalerrors holds error types shared across provider lookups.
package globalerrors

import (
	"fmt"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/models"
)

type ProjectNotFoundError struct {
	ProjectID string
	Platform  models.Platform
}

func (e *ProjectNotFoundError) Error() string {
	return fmt.Sprintf("Project not found on %s: %s", e.Platform, e.ProjectID)
}

func (e *ProjectNotFoundError) Is(target error) bool {
	t, ok := target.(*ProjectNotFoundError)
	if !ok {
		return false
	}
	return e.ProjectID == t.ProjectID && e.Platform == t.Platform
}

//

type ProjectAPIError struct {
	ProjectID string
	Platform  models.Platform
	Err       error
}

func (e *ProjectAPIError) Error() string {
	return fmt.Sprintf("Project cannot be fetched due to an api error on %s: %s", e.Platform, e.ProjectID)
}

func (e *ProjectAPIError) Is(target error) bool {
	t, ok := target.(*ProjectAPIError)
	if !ok {
		return false
	}
	return e.ProjectID == t.ProjectID && e.Platform == t.Platform
}

func (e *ProjectAPIError) Unwrap() error {
	return e.Err
}

func ProjectAPIErrorWrap(err error, projectID string, platform models.Platform) error {
	return &ProjectAPIError{
		ProjectID: projectID,
		Platform:  platform,
		Err:       err,
	}
}

//

// RateLimitedError signals that a platform refused the request with a 429.
// RetryAfter is zero when the platform gave no hint.
type RateLimitedError struct {
	Platform   models.Platform
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("Rate limited by %s, retry after %s", e.Platform, e.RetryAfter)
	}
	return fmt.Sprintf("Rate limited by %s", e.Platform)
}

func (e *RateLimitedError) Is(target error) bool {
	t, ok := target.(*RateLimitedError)
	if !ok {
		return false
	}
	return e.Platform == t.Platform
}

//

// AuthRequiredError signals a 401/403 from a platform. It is terminal for
// the platform within a run: retrying with the same credentials cannot help.
type AuthRequiredError struct {
	Platform models.Platform
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("Authentication required for %s, check the configured api key", e.Platform)
}

func (e *AuthRequiredError) Is(target error) bool {
	t, ok := target.(*AuthRequiredError)
	if !ok {
		return false
	}
	return e.Platform == t.Platform
}

//

// TransportError wraps network level failures (dns, timeouts, refused
// connections) so callers can tell them apart from platform responses.
type TransportError struct {
	Platform models.Platform
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Could not reach %s: %v", e.Platform, e.Err)
}

func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	if !ok {
		return false
	}
	return e.Platform == t.Platform
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
