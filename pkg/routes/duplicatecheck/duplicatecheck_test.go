package duplicatecheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
)

type stubChecker struct {
	verdict *models.DuplicateCheckResult
	err     error
}

func (s stubChecker) Check(context.Context, models.SignupCandidate) (*models.DuplicateCheckResult, error) {
	return s.verdict, s.err
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		checker  stubChecker
		wantCode int
		wantBody string
	}{
		{
			name:     "verdict",
			checker:  stubChecker{verdict: models.NoDuplicate()},
			wantCode: http.StatusOK,
			wantBody: `{"is_duplicate":false,"duplicate_type":"none","allow_continue":true}`,
		},
		{
			name:     "store unavailable is never a pass",
			checker:  stubChecker{err: database.Classify(context.Canceled, "select")},
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
			NewHandler(tt.checker).Register(e.Group("/api/v1/duplicates"))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/duplicates/check",
				strings.NewReader(`{"account_type":"customer","display_name":"Jane Doe"}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
