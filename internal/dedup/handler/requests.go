package handler

import (
	"scolaris/internal/dedup/merge"
	"scolaris/internal/dedup/models"
	"scolaris/pkg/domain"
	dErrors "scolaris/pkg/domain-errors"
)

// ActionRequest is the body of POST /duplicates/groups/{groupID}/action.
type ActionRequest struct {
	Action string `json:"action"`
}

// Validate checks the action is one of ignore, watch, restore.
func (r *ActionRequest) Validate() error {
	if r.Action == "" {
		return dErrors.New(dErrors.CodeValidation, "action is required")
	}
	if _, err := models.GroupAction(r.Action).StatusFor(); err != nil {
		return err
	}
	return nil
}

// MergeRequest is the body of POST /duplicates/merge.
type MergeRequest struct {
	MasterID  string         `json:"master_id"`
	SlaveIDs  []string       `json:"slave_ids"`
	Overrides map[string]any `json:"overrides"`
	GroupID   *int64         `json:"group_id"`
}

// Validate enforces the merge contract: a master, at least one distinct
// slave, and no attempt to override the immutable identifier.
func (r *MergeRequest) Validate() error {
	if _, err := domain.ParseStudentID(r.MasterID); err != nil {
		return dErrors.New(dErrors.CodeValidation, "master_id is required")
	}
	if len(r.SlaveIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one slave_id is required")
	}
	seen := make(map[string]struct{}, len(r.SlaveIDs))
	for _, raw := range r.SlaveIDs {
		id, err := domain.ParseStudentID(raw)
		if err != nil {
			return dErrors.Newf(dErrors.CodeValidation, "invalid slave_id %q", raw)
		}
		if id.String() == r.MasterID {
			return dErrors.New(dErrors.CodeValidation, "master_id cannot appear in slave_ids")
		}
		if _, dup := seen[id.String()]; dup {
			return dErrors.Newf(dErrors.CodeValidation, "duplicate slave_id %q", raw)
		}
		seen[id.String()] = struct{}{}
	}
	for key := range r.Overrides {
		if key == "id" || key == "student_id" {
			return dErrors.Newf(dErrors.CodeValidation, "override %q is not allowed, the identifier is immutable", key)
		}
	}
	return nil
}

// ToEngineRequest converts the validated DTO into the engine's request.
func (r *MergeRequest) ToEngineRequest() merge.Request {
	slaves := make([]domain.StudentID, len(r.SlaveIDs))
	for i, raw := range r.SlaveIDs {
		slaves[i] = domain.StudentID(raw)
	}
	req := merge.Request{
		MasterID:  domain.StudentID(r.MasterID),
		SlaveIDs:  slaves,
		Overrides: r.Overrides,
	}
	if r.GroupID != nil {
		groupID := domain.GroupID(*r.GroupID)
		req.GroupID = &groupID
	}
	return req
}
