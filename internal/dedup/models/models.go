// Package models defines the duplicate-detection entities: persisted groups
// with their members, and the in-memory scan job snapshots the UI polls.
package models

import (
	"time"

	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
)

// GroupStatus is stored and serialized with the legacy French wire values.
type GroupStatus string

const (
	StatusDetected GroupStatus = "DETECTE"
	StatusWatch    GroupStatus = "SURVEILLANCE"
	StatusIgnored  GroupStatus = "IGNORE"
	StatusResolved GroupStatus = "TRAITE"
)

// ParseGroupStatus validates a status filter value.
func ParseGroupStatus(raw string) (GroupStatus, error) {
	switch GroupStatus(raw) {
	case StatusDetected, StatusWatch, StatusIgnored, StatusResolved:
		return GroupStatus(raw), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown group status %q", raw)
}

// GroupAction is an operator action on a detected group.
type GroupAction string

const (
	ActionIgnore  GroupAction = "ignore"
	ActionWatch   GroupAction = "watch"
	ActionRestore GroupAction = "restore"
)

// StatusFor maps an operator action onto the resulting group status.
func (a GroupAction) StatusFor() (GroupStatus, error) {
	switch a {
	case ActionIgnore:
		return StatusIgnored, nil
	case ActionWatch:
		return StatusWatch, nil
	case ActionRestore:
		return StatusDetected, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown group action %q", string(a))
}

// Group is a persisted duplicate candidate set. The signature is the sorted,
// pipe-joined member ids and is unique across groups.
type Group struct {
	ID            domain.GroupID
	Signature     string
	Status        GroupStatus
	DetectionDate time.Time
	AverageScore  int
}

// Member links a student into a group with the reason it was matched.
type Member struct {
	StudentID domain.StudentID
	Reason    string
	Score     int
}

// DetectedGroup is a group the scanner found but has not committed yet.
type DetectedGroup struct {
	Signature    string
	AverageScore int
	Members      []Member
}

// NewDetectedGroup validates the minimum shape of a scanner finding.
func NewDetectedGroup(signature string, averageScore int, members []Member) (DetectedGroup, error) {
	if signature == "" {
		return DetectedGroup{}, dErrors.New(dErrors.CodeInvariantViolation, "group signature cannot be empty")
	}
	if len(members) < 2 {
		return DetectedGroup{}, dErrors.New(dErrors.CodeInvariantViolation, "a duplicate group needs at least two members")
	}
	return DetectedGroup{Signature: signature, AverageScore: averageScore, Members: members}, nil
}

// MemberDetail is a member enriched for the list endpoint.
type MemberDetail struct {
	StudentID    domain.StudentID
	Nom          string
	Prenoms      string
	Reason       string
	DossierCount int
}

// GroupWithMembers is the list-endpoint read model.
type GroupWithMembers struct {
	Group
	Members []MemberDetail
}

// GroupPage is one page of the group listing.
type GroupPage struct {
	Groups    []GroupWithMembers
	Total     int
	Page      int
	PageCount int
}

// JobStatus tracks the scan job lifecycle.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobStopped    JobStatus = "stopped"
	JobFailed     JobStatus = "failed"
	JobUnknown    JobStatus = "unknown"
)

// Terminal reports whether the job has finished, for janitor and stop logic.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobStopped || s == JobFailed
}

// MemberSnapshot is one member inside a rolling-buffer group snapshot.
type MemberSnapshot struct {
	StudentID domain.StudentID
	Nom       string
	Prenoms   string
	Reason    string
}

// GroupSnapshot is the UI-facing view of a freshly discovered group. It lives
// in the job's rolling buffer until the batch holding the group commits.
type GroupSnapshot struct {
	Signature    string
	AverageScore int
	Members      []MemberSnapshot
}

// JobSnapshot is the status-endpoint view of a scan job.
type JobSnapshot struct {
	ID       domain.JobID
	Status   JobStatus
	Progress float64
	Total    int
	Current  int
	Found    int
	Error    string
	Groups   []GroupSnapshot
}
