package modrinth

import (
	"net/http"
	"testing"
)

func writeStringResponse(t *testing.T, writer http.ResponseWriter, payload string) {
	t.Helper()
	if _, err := writer.Write([]byte(payload)); err != nil {
		t.Fatalf("write string response: %v", err)
	}
}

type errorDoer struct {
	err error
}

func (doer errorDoer) Do(_ *http.Request) (*http.Response, error) {
	return nil, doer.err
}
