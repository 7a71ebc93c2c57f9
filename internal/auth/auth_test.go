package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/unitctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

func TestWriteTokenValidate(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "abc", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			testlog.Start(t)
			err := (WriteToken{Token: tc.stored}).Validate(tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFromConfigBlankIsOpen(t *testing.T) {
	testlog.Start(t)
	if err := FromConfig("  ").Validate(""); err != nil {
		t.Fatalf("blank config should accept everything, got %v", err)
	}
	if err := FromConfig("s3cret").Validate(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized without token, got %v", err)
	}
}

func TestRequireWriteGatesUnsafeMethods(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequireWrite(WriteToken{Token: "s3cret"}))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/relations", ok)
	r.POST("/relations", ok)

	cases := []struct {
		method string
		header string
		want   int
	}{
		{http.MethodGet, "", http.StatusOK},
		{http.MethodPost, "", http.StatusUnauthorized},
		{http.MethodPost, "Bearer wrong", http.StatusUnauthorized},
		{http.MethodPost, "bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, "/relations", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("%s with %q: expected %d, got %d", tc.method, tc.header, tc.want, rr.Code)
		}
	}
}
