package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"scolaris/internal/dedup/handler"
	"scolaris/internal/dedup/merge"
	"scolaris/internal/dedup/models"
	"scolaris/internal/platform/middleware"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
	"scolaris/pkg/testutil"
)

// allowAllValidator authenticates any bearer token as a fixed operator.
type allowAllValidator struct{}

func (allowAllValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return &middleware.JWTClaims{Subject: "op-1", Role: "admin"}, nil
}

// stubService scripts the service layer per test.
type stubService struct {
	startJobID   domain.JobID
	stopErr      error
	statusSnap   models.JobSnapshot
	listPage     *models.GroupPage
	listErr      error
	actionGroup  *models.Group
	actionErr    error
	mergeErr     error
	lastMergeReq *merge.Request
}

func (s *stubService) StartScan(context.Context) domain.JobID { return s.startJobID }

func (s *stubService) StopScan(_ context.Context, jobID domain.JobID) error { return s.stopErr }

func (s *stubService) ScanStatus(_ context.Context, jobID domain.JobID) models.JobSnapshot {
	if s.statusSnap.ID == "" {
		return models.JobSnapshot{ID: jobID, Status: models.JobUnknown}
	}
	return s.statusSnap
}

func (s *stubService) ListGroups(context.Context, int, int, models.GroupStatus) (*models.GroupPage, error) {
	return s.listPage, s.listErr
}

func (s *stubService) GroupAction(context.Context, domain.GroupID, models.GroupAction) (*models.Group, error) {
	return s.actionGroup, s.actionErr
}

func (s *stubService) Merge(_ context.Context, req merge.Request) error {
	s.lastMergeReq = &req
	return s.mergeErr
}

type HandlerSuite struct {
	suite.Suite
	service *stubService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{startJobID: "job-1"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	handler.New(s.service, logger, allowAllValidator{}).Register(s.router)
}

func (s *HandlerSuite) TestStartScan() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/scan", nil)
	rr := testutil.DoRequest(s.router, authed(req))

	s.Equal(http.StatusAccepted, rr.Code)
	resp := testutil.UnmarshalResponse[map[string]string](s.T(), rr)
	s.Equal("job-1", (*resp)["job_id"])
}

func (s *HandlerSuite) TestMissingTokenIsUnauthorized() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/scan", nil)
	rr := testutil.DoRequest(s.router, req)

	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *HandlerSuite) TestStopScanUnknownJob() {
	s.service.stopErr = dErrors.New(dErrors.CodeNotFound, "scan job j1 not found")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/scan/j1/stop", nil)
	rr := testutil.DoRequest(s.router, authed(req))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestScanStatusUnknownJob() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/duplicates/scan/ghost", nil)
	rr := testutil.DoRequest(s.router, authed(req))

	s.Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("unknown", (*resp)["status"])
}

func (s *HandlerSuite) TestListGroupsRejectsBadStatus() {
	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/duplicates/groups?status=BOGUS", nil)
	rr := testutil.DoRequest(s.router, authed(req))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *HandlerSuite) TestListGroups() {
	s.service.listPage = &models.GroupPage{
		Groups: []models.GroupWithMembers{{
			Group: models.Group{ID: 3, Signature: "A|B", Status: models.StatusDetected, AverageScore: 97},
			Members: []models.MemberDetail{
				{StudentID: "A", Nom: "Dupont", Reason: "reference", DossierCount: 2},
				{StudentID: "B", Nom: "Dupond", Reason: "identical national-ID", DossierCount: 1},
			},
		}},
		Total:     1,
		Page:      1,
		PageCount: 1,
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/api/v1/duplicates/groups", nil)
	rr := testutil.DoRequest(s.router, authed(req))

	s.Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.EqualValues(1, (*resp)["total"])
	groups := (*resp)["groups"].([]any)
	s.Require().Len(groups, 1)
	first := groups[0].(map[string]any)
	s.Equal("A|B", first["signature"])
	s.Len(first["members"].([]any), 2)
}

func (s *HandlerSuite) TestGroupActionRejectsNonNumericID() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/groups/abc/action",
		map[string]string{"action": "ignore"})
	rr := testutil.DoRequest(s.router, authed(req))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *HandlerSuite) TestGroupActionRejectsUnknownAction() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/groups/3/action",
		map[string]string{"action": "archive"})
	rr := testutil.DoRequest(s.router, authed(req))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
}

func (s *HandlerSuite) TestGroupActionUpdatesStatus() {
	s.service.actionGroup = &models.Group{ID: 3, Signature: "A|B", Status: models.StatusIgnored}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/groups/3/action",
		map[string]string{"action": "ignore"})
	rr := testutil.DoRequest(s.router, authed(req))

	s.Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("IGNORE", (*resp)["status"])
}

func (s *HandlerSuite) TestMergeValidation() {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing master", map[string]any{"slave_ids": []string{"X"}}},
		{"no slaves", map[string]any{"master_id": "M"}},
		{"master in slaves", map[string]any{"master_id": "M", "slave_ids": []string{"M"}}},
		{"duplicate slave", map[string]any{"master_id": "M", "slave_ids": []string{"X", "X"}}},
		{"id override", map[string]any{
			"master_id": "M",
			"slave_ids": []string{"X"},
			"overrides": map[string]any{"id": "other"},
		}},
	}

	for _, tc := range cases {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/merge", tc.body)
		rr := testutil.DoRequest(s.router, authed(req))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		s.Nil(s.service.lastMergeReq, "%s: merge must not reach the service", tc.name)
	}
}

func (s *HandlerSuite) TestMergeSuccess() {
	body := map[string]any{
		"master_id": "M",
		"slave_ids": []string{"X", "Y"},
		"overrides": map[string]any{"nom": "Rakoto"},
		"group_id":  7,
	}

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/merge", body)
	rr := testutil.DoRequest(s.router, authed(req))

	s.Equal(http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[map[string]any](s.T(), rr)
	s.Equal("M", (*resp)["master_id"])
	s.EqualValues(2, (*resp)["merged_count"])

	s.Require().NotNil(s.service.lastMergeReq)
	s.Equal(domain.StudentID("M"), s.service.lastMergeReq.MasterID)
	s.Require().NotNil(s.service.lastMergeReq.GroupID)
	s.EqualValues(7, *s.service.lastMergeReq.GroupID)
	s.Equal("Rakoto", s.service.lastMergeReq.Overrides["nom"])
}

func (s *HandlerSuite) TestMergeNotFoundPassesThrough() {
	s.service.mergeErr = dErrors.New(dErrors.CodeNotFound, "master student M not found")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/v1/duplicates/merge",
		map[string]any{"master_id": "M", "slave_ids": []string{"X"}})
	rr := testutil.DoRequest(s.router, authed(req))

	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}
