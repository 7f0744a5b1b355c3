package httptransport

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"tutor-voice-server/internal/platform/errors"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.KindValidation, "op", "bad"), http.StatusBadRequest},
		{errors.New(errors.KindDependency, "op", "down"), http.StatusServiceUnavailable},
		{errors.New(errors.KindStorage, "op", "disk"), http.StatusInternalServerError},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Fatalf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondErrHidesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	err := errors.Wrap(errors.KindStorage, "cache.put", "write failed at /var/lib/secret.db", stderrors.New("io"))
	RespondErr(c, StatusFor(err), err)

	var resp APIResponse
	if jerr := json.Unmarshal(rec.Body.Bytes(), &resp); jerr != nil {
		t.Fatalf("decode: %v", jerr)
	}
	if resp.Success || resp.Code != http.StatusInternalServerError || resp.Message != "internal server error" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
