package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"istr/internal/batch"
	"istr/internal/batch/handler/mocks"
	"istr/internal/columnar"
	"istr/internal/platform/metrics"
	"istr/internal/projection"
	dErrors "istr/pkg/domain-errors"
	"istr/pkg/requestcontext"
	"istr/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type BatchHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestBatchHandlerSuite(t *testing.T) {
	suite.Run(t, new(BatchHandlerSuite))
}

func (s *BatchHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, logger, metrics.New(prometheus.NewRegistry()))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func ptr(s string) *string { return &s }

// =============================================================================
// POST /v1/functions/{name}
// =============================================================================

func (s *BatchHandlerSuite) TestRunScalarOutput() {
	out := columnar.FromValues("isin", []*bool{nil, boolPtr(true), boolPtr(false)})
	s.service.EXPECT().Run(gomock.Any(), batch.Request{
		Function: "isin.is_valid",
		Column:   "isin",
		Values:   []*string{nil, ptr("US0378331005"), ptr("US0378331006")},
	}).Return(&batch.Result{
		RunID:    "0b5e1f6a-6f57-4c61-9a43-2f1c8a6b7e10",
		Function: "isin.is_valid",
		Output:   out,
		Stats:    batch.Stats{Rows: 3, NullInputs: 1, Valid: 1, Invalid: map[string]int{"Invalid check digit": 1}},
	}, nil)

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/functions/isin.is_valid",
		`{"column":" isin ","values":[null,"US0378331005","US0378331006"]}`)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[RunResponse](s.T(), rr)
	s.Equal("isin.is_valid", resp.Function)
	s.Equal(3, resp.Rows)
	s.Equal(1, resp.Stats.NullInputs)
	s.Require().Len(resp.Columns, 1)
	col := resp.Columns[0]
	s.Equal("isin", col.Name)
	s.Equal(columnar.KindBool, col.Type)
	s.Require().NotNil(col.Values)
	if diff := cmp.Diff([]any{nil, true, false}, *col.Values); diff != "" {
		s.Failf("values mismatch", "(-want +got):\n%s", diff)
	}
}

func (s *BatchHandlerSuite) TestRunStructOutput() {
	country := columnar.FromValues("country_code", []*string{ptr("GB"), nil})
	check := columnar.FromValues("check_digits", []*string{ptr("82"), nil})
	st, err := columnar.NewStructColumn("value", country, check)
	s.Require().NoError(err)

	s.service.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&batch.Result{
		RunID:    "run",
		Function: "iban.extract_all",
		Output:   st,
		Stats:    batch.Stats{Rows: 2, Valid: 1, Invalid: map[string]int{"Invalid checksum": 1}},
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/functions/iban.extract_all",
		RunRequest{Values: []*string{ptr("GB82WEST12345698765432"), ptr("GB00WEST12345698765432")}}))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[RunResponse](s.T(), rr)
	s.Require().Len(resp.Columns, 1)
	col := resp.Columns[0]
	s.Equal(columnar.KindStruct, col.Type)
	s.Nil(col.Values)
	s.Require().Len(col.Fields, 2)
	s.Equal("country_code", col.Fields[0].Name)
	s.Equal([]any{"GB", nil}, *col.Fields[0].Values)
}

func (s *BatchHandlerSuite) TestRunEmptyValuesKeepsArray() {
	s.service.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&batch.Result{
		Function: "url.check",
		Output:   columnar.NewColumn[string]("value", 0),
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/functions/url.check", `{"values":[]}`))

	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), `"values":[]`)
}

func (s *BatchHandlerSuite) TestRunPassesRequestContext() {
	s.service.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, _ batch.Request) (*batch.Result, error) {
		s.Equal("req-9", requestcontext.RequestID(ctx))
		s.Equal("svc-ingest", requestcontext.Subject(ctx))
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown function")
	})

	req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/functions/x.y", `{"values":[]}`)
	req = testutil.WithSubject(testutil.WithRequestID(req, "req-9"), "svc-ingest")
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}

func (s *BatchHandlerSuite) TestRunRejectsBadBodies() {
	cases := []struct {
		name string
		body string
		code string
	}{
		{name: "missing values", body: `{"column":"x"}`, code: string(dErrors.CodeValidation)},
		{name: "non string value", body: `{"values":[1,2]}`, code: string(dErrors.CodeBadRequest)},
		{name: "not json", body: `values=1`, code: string(dErrors.CodeBadRequest)},
		{name: "empty body", body: ``, code: string(dErrors.CodeBadRequest)},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/functions/cusip.check", tc.body))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, tc.code)
		})
	}
}

func (s *BatchHandlerSuite) TestRunServiceErrors() {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "unknown function", err: dErrors.New(dErrors.CodeNotFound, `unknown function "x.y"`), status: http.StatusNotFound, code: "not_found"},
		{name: "too many rows", err: dErrors.New(dErrors.CodeBadRequest, "too many"), status: http.StatusBadRequest, code: "bad_request"},
		{name: "cancelled", err: dErrors.New(dErrors.CodeUnavailable, "batch run cancelled"), status: http.StatusServiceUnavailable, code: "service_unavailable"},
		{name: "internal", err: dErrors.New(dErrors.CodeInternal, "boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.service.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, tc.err)
			rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodPost, "/v1/functions/x.y", `{"values":["a"]}`))
			testutil.AssertStatusAndError(s.T(), rr, tc.status, tc.code)
		})
	}
}

// =============================================================================
// GET /v1/functions
// =============================================================================

func (s *BatchHandlerSuite) TestListFunctions() {
	s.service.EXPECT().Functions().Return(projection.Default().ListByFormat("iban"))

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/functions"))

	testutil.AssertStatusOK(s.T(), rr)
	resp := testutil.UnmarshalResponse[FunctionsResponse](s.T(), rr)
	byName := make(map[string]FunctionInfo, len(resp.Functions))
	for _, fn := range resp.Functions {
		s.Equal("iban", fn.Format)
		byName[fn.Name] = fn
	}
	s.Equal("check", byName["iban.check"].Mode)
	s.Equal(columnar.KindString, byName["iban.check"].Output)
	s.Require().Len(byName["iban.bank_id"].Fields, 1)
	s.Equal(columnar.KindStruct, byName["iban.extract_all"].Output)
}

// =============================================================================
// Runs
// =============================================================================

func (s *BatchHandlerSuite) TestGetRun() {
	id := "0b5e1f6a-6f57-4c61-9a43-2f1c8a6b7e10"
	s.Run("found", func() {
		s.service.EXPECT().GetRun(gomock.Any(), id).Return(&batch.RunSummary{
			ID:        id,
			Function:  "cusip.check",
			Format:    "cusip",
			Stats:     batch.Stats{Rows: 1, Valid: 1},
			StartedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Duration:  time.Millisecond,
		}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/runs/"+id))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "function", "cusip.check")
	})

	s.Run("missing", func() {
		s.service.EXPECT().GetRun(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeNotFound, "run not found"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/runs/"+id))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

func (s *BatchHandlerSuite) TestListRuns() {
	s.Run("default limit and empty list", func() {
		s.service.EXPECT().ListRuns(gomock.Any(), 0).Return(nil, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/runs"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"runs":[]}`, rr.Body.String())
	})

	s.Run("explicit limit", func() {
		s.service.EXPECT().ListRuns(gomock.Any(), 5).Return([]batch.RunSummary{{ID: "a"}}, nil)
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/runs?limit=5"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[RunsResponse](s.T(), rr)
		s.Len(resp.Runs, 1)
	})

	s.Run("bad limit", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/v1/runs?limit=zero"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func boolPtr(b bool) *bool { return &b }
