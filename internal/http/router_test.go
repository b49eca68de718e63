package transporthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	_ "github.com/MrKriegler/policy-admin/docs"
	"github.com/MrKriegler/policy-admin/internal/app"
	"github.com/MrKriegler/policy-admin/internal/core"
	transporthttp "github.com/MrKriegler/policy-admin/internal/http"
	"github.com/MrKriegler/policy-admin/internal/http/handlers"
	"github.com/MrKriegler/policy-admin/internal/http/health"
	"github.com/MrKriegler/policy-admin/internal/middleware"
	"github.com/MrKriegler/policy-admin/internal/platform/config"
	"github.com/MrKriegler/policy-admin/pkg/problem"
)

const (
	secret = "router-test-secret"
	issuer = "policy-admin"
)

type RouterSuite struct {
	suite.Suite
	srv       *httptest.Server
	services  *app.Services
	token     string
	productID string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{DBType: "memory", MasterTenantID: "master", LockWaitMs: 1000}

	stores, err := app.OpenStores(ctx, cfg, log)
	s.Require().NoError(err)
	s.Require().NoError(stores.Tenants.Upsert(ctx, core.Tenant{ID: "t1", Name: "Acme"}))
	s.services, err = app.Build(ctx, cfg, log, stores)
	s.Require().NoError(err)

	s.srv = httptest.NewServer(transporthttp.NewRouter(transporthttp.Deps{
		Log:    log,
		Health: health.New(log, time.Second, stores.Checks...),
		Mounts: []handlers.Mountable{
			handlers.NewQuoteHandler(s.services.Quotes, log),
			handlers.NewPolicyHandler(s.services.Quotes, s.services.Policies, log),
			handlers.NewProductHandler(stores.Products, s.services.Features, log),
			handlers.NewProductFeatureHandler(s.services.Features, log),
			handlers.NewSystemAlertHandler(s.services.Alerts, log),
			handlers.NewRoleHandler(s.services.Roles, log),
			handlers.NewAutomationHandler(s.services.Automation, log),
		},
		Limiter:        middleware.NewMemoryLimiter(1000, time.Minute),
		JWTSecret:      secret,
		JWTIssuer:      issuer,
		AllowedOrigins: []string{"*"},
		RequestTimeout: 5 * time.Second,
	}))
	s.token = s.issue(core.Actor{UserID: "u1", TenantID: "t1"})

	var product core.Product
	s.do(http.MethodPost, "/api/v1/tenants/t1/products", map[string]any{
		"alias": "term-life", "name": "Term Life",
		"rating": map[string]any{"termYears": 10, "minCoverage": 10000, "maxCoverage": 1000000, "baseRate": "0.25"},
	}, http.StatusCreated, &product)
	s.productID = product.ID

	for _, kind := range []string{"quote", "policy"} {
		s.do(http.MethodPost, "/api/v1/tenants/t1/number-pools/load", map[string]any{
			"productId": s.productID, "kind": kind, "count": 100,
		}, http.StatusOK, nil)
	}
}

func (s *RouterSuite) TearDownTest() {
	s.srv.Close()
	s.services.Close()
}

func (s *RouterSuite) issue(a core.Actor) string {
	tok, err := middleware.IssueToken(secret, issuer, a, time.Hour)
	s.Require().NoError(err)
	return tok
}

func (s *RouterSuite) request(method, path, token string, body any) *http.Response {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rdr)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.srv.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

// do sends body and decodes the response into out when it is not nil.
func (s *RouterSuite) do(method, path string, body any, wantStatus int, out any) {
	resp := s.request(method, path, s.token, body)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	s.Require().Equal(wantStatus, resp.StatusCode, "%s %s: %s", method, path, raw)
	if out != nil {
		s.Require().NoError(json.Unmarshal(raw, out))
	}
}

func (s *RouterSuite) createQuote() core.AggregateView {
	var view core.AggregateView
	s.do(http.MethodPost, "/api/v1/tenants/t1/quotes", map[string]any{
		"productId": s.productID,
		"formData":  map[string]any{"coverageAmount": 100000, "termYears": 10, "age": 30},
	}, http.StatusCreated, &view)
	s.Require().Len(view.Quotes, 1)
	return view
}

func (s *RouterSuite) TestQuoteToPolicy() {
	view := s.createQuote()
	q := view.Quotes[0]
	base := fmt.Sprintf("/api/v1/tenants/t1/quotes/%s/%s", view.ID, q.ID)

	var p problem.Problem
	s.do(http.MethodPost, base+"/actions/Return", nil, http.StatusConflict, &p)
	s.Equal("quote.operation.not.permitted.for.state", p.Code)

	s.do(http.MethodPost, base+"/actions/Teleport", nil, http.StatusNotFound, &p)
	s.Equal("quote.workflow.operation.not.found", p.Code)

	s.do(http.MethodPost, base+"/actions/autoapproval", nil, http.StatusOK, &view)
	s.Equal(core.QuoteStateApproved, view.Quotes[0].State)

	s.do(http.MethodPost, fmt.Sprintf("/api/v1/tenants/t1/policies/%s/issue", view.ID),
		map[string]any{"quoteId": q.ID}, http.StatusOK, &view)
	s.Require().NotNil(view.Policy)
	s.Equal("000001", view.Policy.PolicyNumber)
	s.Equal(core.PolicyStatusActive, view.Policy.Status)
}

func (s *RouterSuite) TestDocumentsAndVersions() {
	view := s.createQuote()
	base := fmt.Sprintf("/api/v1/tenants/t1/quotes/%s/%s", view.ID, view.Quotes[0].ID)

	var doc core.QuoteDocument
	s.do(http.MethodPost, base+"/documents", map[string]any{
		"name": "id.txt", "contentType": "text/plain", "content": []byte("hello"),
	}, http.StatusOK, &doc)
	s.Equal(int64(5), doc.SizeBytes)

	var v core.QuoteVersion
	s.do(http.MethodPost, base+"/versions", nil, http.StatusCreated, &v)
	s.Equal(1, v.VersionNumber)

	s.do(http.MethodPut, base+"/customer", map[string]any{"customerId": "cust-9"}, http.StatusOK, &view)
	s.Equal("cust-9", view.CustomerID)

	s.do(http.MethodPut, base+"/form-data", map[string]any{}, http.StatusBadRequest, nil)
}

func (s *RouterSuite) TestDisabledFeatureBlocksQuoting() {
	path := fmt.Sprintf("/api/v1/tenants/t1/products/%s/features/NewBusinessQuotes/disable", s.productID)
	var setting core.ProductFeatureSetting
	s.do(http.MethodPost, path, nil, http.StatusOK, &setting)
	s.False(setting.IsEnabled(core.FeatureNewBusinessQuotes))

	var p problem.Problem
	s.do(http.MethodPost, path, nil, http.StatusConflict, &p)
	s.Equal("product.feature.already.disabled", p.Code)

	s.do(http.MethodPost, "/api/v1/tenants/t1/quotes", map[string]any{"productId": s.productID}, http.StatusForbidden, &p)
	s.Equal("product.feature.disabled", p.Code)
}

func (s *RouterSuite) TestRoleInUse() {
	var role core.Role
	s.do(http.MethodPost, "/api/v1/tenants/t1/roles", map[string]any{"name": "broker"}, http.StatusCreated, &role)
	s.NotEmpty(role.Permissions)

	path := "/api/v1/tenants/t1/roles/" + role.ID
	s.do(http.MethodPost, path+"/assignments", map[string]any{"userId": "u2"}, http.StatusNoContent, nil)

	var p problem.Problem
	s.do(http.MethodDelete, path, nil, http.StatusConflict, &p)
	s.Equal("cannot.delete.role.in.use", p.Code)
}

func (s *RouterSuite) TestTenantIsolation() {
	view := s.createQuote()
	other := s.issue(core.Actor{UserID: "u9", TenantID: "t2"})

	resp := s.request(http.MethodGet, "/api/v1/tenants/t1/quotes/"+view.ID, other, nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.request(http.MethodGet, "/api/v1/tenants/t2/quotes/"+view.ID, other, nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp = s.request(http.MethodGet, "/api/v1/tenants/t1/quotes/"+view.ID, "", nil)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *RouterSuite) TestOperationalEndpoints() {
	for _, path := range []string{"/health", "/readyz", "/metrics", "/swagger/doc.json"} {
		resp := s.request(http.MethodGet, path, "", nil)
		resp.Body.Close()
		s.Equal(http.StatusOK, resp.StatusCode, path)
		s.Equal("nosniff", resp.Header.Get("X-Content-Type-Options"), path)
	}
}
