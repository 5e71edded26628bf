package globalerrors

import (
	"errors"
	"testing"
	"time"

	"github.com/Dig-pestroyer/NyxPatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestProjectNotFoundError_Error(t *testing.T) {
	err := &ProjectNotFoundError{ProjectID: "AABBCCDD", Platform: models.CURSEFORGE}
	expected := "Project not found on curseforge: AABBCCDD"
	assert.Equal(t, expected, err.Error())
}

func TestProjectAPIError_Error(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &ProjectAPIError{ProjectID: "AABBCCDD", Err: underlyingErr, Platform: models.MODRINTH}
	expected := "Project cannot be fetched due to an api error on modrinth: AABBCCDD"
	assert.Equal(t, expected, err.Error())
}

func TestProjectAPIError_Unwrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := &ProjectAPIError{ProjectID: "AABBCCDD", Err: underlyingErr, Platform: models.CURSEFORGE}
	assert.Equal(t, underlyingErr, err.Unwrap())
}

func TestProjectAPIErrorWrap(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := ProjectAPIErrorWrap(underlyingErr, "AABBCCDD", models.MODRINTH)
	expected := &ProjectAPIError{ProjectID: "AABBCCDD", Err: underlyingErr, Platform: models.MODRINTH}
	assert.Equal(t, expected, err)
}

func TestProjectNotFoundError_Is(t *testing.T) {
	err1 := &ProjectNotFoundError{ProjectID: "AABBCCDD", Platform: models.MODRINTH}
	err2 := &ProjectNotFoundError{ProjectID: "AABBCCDD", Platform: models.MODRINTH}
	err3 := &ProjectNotFoundError{ProjectID: "EEFFGGHH", Platform: models.MODRINTH}
	err4 := &ProjectNotFoundError{ProjectID: "EEFFGGHH", Platform: models.CURSEFORGE}
	assert.True(t, err1.Is(err2))
	assert.False(t, err1.Is(err3))
	assert.False(t, err3.Is(err4))
	assert.False(t, err1.Is(errors.New("some other error")))
}

func TestRateLimitedError_Error(t *testing.T) {
	err := &RateLimitedError{Platform: models.MODRINTH}
	assert.Equal(t, "Rate limited by modrinth", err.Error())

	err = &RateLimitedError{Platform: models.CURSEFORGE, RetryAfter: 30 * time.Second}
	assert.Equal(t, "Rate limited by curseforge, retry after 30s", err.Error())
}

func TestRateLimitedError_Is(t *testing.T) {
	err1 := &RateLimitedError{Platform: models.MODRINTH}
	err2 := &RateLimitedError{Platform: models.MODRINTH, RetryAfter: time.Minute}
	err3 := &RateLimitedError{Platform: models.CURSEFORGE}
	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
	assert.False(t, err1.Is(errors.New("some other error")))
}

func TestAuthRequiredError(t *testing.T) {
	err := &AuthRequiredError{Platform: models.CURSEFORGE}
	assert.Equal(t, "Authentication required for curseforge, check the configured api key", err.Error())
	assert.True(t, errors.Is(err, &AuthRequiredError{Platform: models.CURSEFORGE}))
	assert.False(t, errors.Is(err, &AuthRequiredError{Platform: models.MODRINTH}))
}

func TestTransportError(t *testing.T) {
	underlyingErr := errors.New("connection refused")
	err := &TransportError{Platform: models.MODRINTH, Err: underlyingErr}
	assert.Equal(t, "Could not reach modrinth: connection refused", err.Error())
	assert.Equal(t, underlyingErr, err.Unwrap())
	assert.True(t, errors.Is(err, &TransportError{Platform: models.MODRINTH}))
	assert.False(t, errors.Is(err, &TransportError{Platform: models.CURSEFORGE}))
}
