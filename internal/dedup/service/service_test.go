package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	academicsmodels "scolaris/internal/academics/models"
	academicsstore "scolaris/internal/academics/store"
	"scolaris/internal/audit"
	"scolaris/internal/dedup/merge"
	"scolaris/internal/dedup/metrics"
	"scolaris/internal/dedup/models"
	"scolaris/internal/dedup/scan"
	"scolaris/internal/dedup/service"
	dedupstore "scolaris/internal/dedup/store"
	"scolaris/internal/dedup/store/dossiercache"
	"scolaris/internal/platform/config"
	studentstore "scolaris/internal/student/store"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
	"scolaris/pkg/requestcontext"
)

var testMetrics = metrics.New()

// captureAuditor records emitted events for assertions.
type captureAuditor struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureAuditor) Emit(_ context.Context, event audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureAuditor) Close() {}

func (c *captureAuditor) last() audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func (c *captureAuditor) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Action
	}
	return out
}

// stubMerger lets the suite observe merge calls without a real engine.
type stubMerger struct {
	err  error
	last *merge.Request
}

func (m *stubMerger) Merge(_ context.Context, req merge.Request) error {
	m.last = &req
	return m.err
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	students  *studentstore.InMemory
	academics *academicsstore.InMemory
	groups    *dedupstore.InMemory
	registry  *scan.Registry
	auditor   *captureAuditor
	merger    *stubMerger
	svc       *service.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.students = studentstore.NewInMemory()
	s.academics = academicsstore.NewInMemory()
	s.groups = dedupstore.NewInMemory()
	s.registry = scan.NewRegistry(24 * time.Hour)
	s.auditor = &captureAuditor{}
	s.merger = &stubMerger{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scanner := scan.NewScanner(s.students, s.groups, s.registry, config.ScanConfig{
		PageSize:      100,
		BatchSize:     20,
		BatchPause:    time.Millisecond,
		ProgressEvery: 50,
	}, logger, testMetrics)
	counts := dossiercache.New(s.academics, nil, time.Minute)

	s.svc = service.New(scanner, s.registry, s.groups, counts, s.merger, testMetrics, logger,
		service.WithAuditor(s.auditor))
}

func (s *ServiceSuite) seedGroup(signature string, score int, members ...domain.StudentID) domain.GroupID {
	detected := models.DetectedGroup{Signature: signature, AverageScore: score}
	for i, id := range members {
		reason := "identical national-ID"
		if i == 0 {
			reason = "reference"
		}
		detected.Members = append(detected.Members, models.Member{StudentID: id, Reason: reason})
	}
	s.Require().NoError(s.groups.InsertBatch(s.ctx, []models.DetectedGroup{detected}))

	page, _, err := s.groups.List(s.ctx, 1, 100, models.StatusDetected)
	s.Require().NoError(err)
	for _, g := range page {
		if g.Signature == signature {
			return g.ID
		}
	}
	s.FailNow("seeded group not found")
	return 0
}

func (s *ServiceSuite) TestStartScanRegistersJobAndAudits() {
	jobID := s.svc.StartScan(s.ctx)

	s.NotEmpty(jobID.String())
	s.NotNil(s.registry.Find(jobID))
	s.Contains(s.auditor.actions(), audit.ActionScanStarted)
}

func (s *ServiceSuite) TestStopScanUnknownJob() {
	err := s.svc.StopScan(s.ctx, "missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestScanStatusUnknownJob() {
	snap := s.svc.ScanStatus(s.ctx, "missing")
	s.Equal(models.JobUnknown, snap.Status)
}

func (s *ServiceSuite) TestListGroupsDecoratesDossierCounts() {
	s.seedGroup("A|B", 95, "A", "B")
	s.academics.SeedDossier(academicsmodels.Dossier{StudentID: "A", MentionID: "INFO"})
	s.academics.SeedDossier(academicsmodels.Dossier{StudentID: "A", MentionID: "GESTION"})

	page, err := s.svc.ListGroups(s.ctx, 1, 10, models.StatusDetected)
	s.Require().NoError(err)
	s.Require().Len(page.Groups, 1)

	counts := map[domain.StudentID]int{}
	for _, m := range page.Groups[0].Members {
		counts[m.StudentID] = m.DossierCount
	}
	s.Equal(2, counts["A"])
	s.Equal(0, counts["B"])
}

func (s *ServiceSuite) TestListGroupsComputesPageCount() {
	s.seedGroup("A|B", 95, "A", "B")
	s.seedGroup("C|D", 90, "C", "D")
	s.seedGroup("E|F", 85, "E", "F")

	page, err := s.svc.ListGroups(s.ctx, 1, 2, models.StatusDetected)
	s.Require().NoError(err)
	s.Equal(3, page.Total)
	s.Equal(2, page.PageCount)
	s.Len(page.Groups, 2)
	// Ordered by score: best candidates first.
	s.Equal("A|B", page.Groups[0].Signature)
}

func (s *ServiceSuite) TestGroupActionTransitions() {
	cases := []struct {
		action models.GroupAction
		want   models.GroupStatus
	}{
		{models.ActionIgnore, models.StatusIgnored},
		{models.ActionWatch, models.StatusWatch},
		{models.ActionRestore, models.StatusDetected},
	}
	for _, tc := range cases {
		groupID := s.seedGroup("sig-"+string(tc.action)+"|x", 90, domain.StudentID("a-"+string(tc.action)), "x")

		group, err := s.svc.GroupAction(s.ctx, groupID, tc.action)
		s.Require().NoError(err, "action %s", tc.action)
		s.Equal(tc.want, group.Status)
	}
	s.Contains(s.auditor.actions(), audit.ActionGroupUpdated)
}

func (s *ServiceSuite) TestGroupActionOnResolvedGroupConflicts() {
	groupID := s.seedGroup("A|B", 95, "A", "B")
	s.Require().NoError(s.groups.UpdateStatus(s.ctx, groupID, models.StatusResolved))

	_, err := s.svc.GroupAction(s.ctx, groupID, models.ActionIgnore)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestGroupActionUnknownGroup() {
	_, err := s.svc.GroupAction(s.ctx, 999, models.ActionIgnore)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestGroupActionUnknownAction() {
	_, err := s.svc.GroupAction(s.ctx, 1, models.GroupAction("archive"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestMergeDelegatesAndAudits() {
	groupID := domain.GroupID(7)
	req := merge.Request{
		MasterID: "M",
		SlaveIDs: []domain.StudentID{"X", "Y"},
		GroupID:  &groupID,
	}

	s.Require().NoError(s.svc.Merge(s.ctx, req))
	s.Require().NotNil(s.merger.last)
	s.Equal(domain.StudentID("M"), s.merger.last.MasterID)
	s.Contains(s.auditor.actions(), audit.ActionMerge)
}

func (s *ServiceSuite) TestAuditEventsCarryRequestTime() {
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, at)

	s.Require().NoError(s.svc.Merge(ctx, merge.Request{MasterID: "M", SlaveIDs: []domain.StudentID{"X"}}))
	s.Require().NotEmpty(s.auditor.actions())
	s.Equal(at, s.auditor.last().Timestamp)
}

func (s *ServiceSuite) TestMergeFailureSkipsAudit() {
	s.merger.err = dErrors.New(dErrors.CodeNotFound, "master student M not found")

	err := s.svc.Merge(s.ctx, merge.Request{MasterID: "M", SlaveIDs: []domain.StudentID{"X"}})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.NotContains(s.auditor.actions(), audit.ActionMerge)
}
