package core_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
)

func TestHTTPActionValidation(t *testing.T) {
	cases := []struct {
		name   string
		action core.HTTPRequestAction
		code   string
	}{
		{"unknown verb", core.HTTPRequestAction{Name: "a", Verb: "FETCH", URL: "https://example.com"}, "automation.action.http.verb.invalid"},
		{"relative url", core.HTTPRequestAction{Name: "a", Verb: "GET", URL: "/hooks"}, "automation.action.http.url.invalid"},
		{"ftp url", core.HTTPRequestAction{Name: "a", Verb: "GET", URL: "ftp://example.com/x"}, "automation.action.http.url.invalid"},
		{"lower-case verb", core.HTTPRequestAction{Name: "a", Verb: " post ", URL: "https://example.com"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.action.Validate()
			if tc.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, core.HasCode(err, tc.code), "got %v", err)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestHTTPActionRunner(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Hook")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	runner := core.NewHTTPActionRunner(srv.Client(), discardLogger())
	res, err := runner.Run(context.Background(), core.HTTPRequestAction{
		Name:    "notify-crm",
		Verb:    "put",
		URL:     srv.URL + "/hooks",
		Headers: map[string]string{"X-Hook": "quote"},
		Body:    `{"quoteId":"q1"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, res.Body)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "quote", gotHeader)
	assert.Equal(t, `{"quoteId":"q1"}`, gotBody)
}

func TestHTTPActionRunnerUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	runner := core.NewHTTPActionRunner(nil, discardLogger())
	_, err := runner.Run(context.Background(), core.HTTPRequestAction{Name: "gone", Verb: "GET", URL: url})
	assert.ErrorContains(t, err, `automation action "gone"`)
}
