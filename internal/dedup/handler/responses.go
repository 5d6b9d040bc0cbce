package handler

import (
	"time"

	"scolaris/internal/dedup/models"
)

type jobResponse struct {
	JobID string `json:"job_id"`
}

type memberSnapshotResponse struct {
	StudentID string `json:"student_id"`
	Nom       string `json:"nom"`
	Prenoms   string `json:"prenoms"`
	Reason    string `json:"reason"`
}

type groupSnapshotResponse struct {
	Signature    string                   `json:"signature"`
	AverageScore int                      `json:"average_score"`
	Members      []memberSnapshotResponse `json:"members"`
}

type jobStatusResponse struct {
	JobID    string                  `json:"job_id"`
	Status   string                  `json:"status"`
	Progress float64                 `json:"progress"`
	Total    int                     `json:"total"`
	Current  int                     `json:"current"`
	Found    int                     `json:"found"`
	Error    string                  `json:"error,omitempty"`
	Groups   []groupSnapshotResponse `json:"groups"`
}

func toJobStatusResponse(snap models.JobSnapshot) jobStatusResponse {
	resp := jobStatusResponse{
		JobID:    snap.ID.String(),
		Status:   string(snap.Status),
		Progress: snap.Progress,
		Total:    snap.Total,
		Current:  snap.Current,
		Found:    snap.Found,
		Error:    snap.Error,
		Groups:   []groupSnapshotResponse{},
	}
	for _, g := range snap.Groups {
		gr := groupSnapshotResponse{Signature: g.Signature, AverageScore: g.AverageScore}
		for _, m := range g.Members {
			gr.Members = append(gr.Members, memberSnapshotResponse{
				StudentID: m.StudentID.String(),
				Nom:       m.Nom,
				Prenoms:   m.Prenoms,
				Reason:    m.Reason,
			})
		}
		resp.Groups = append(resp.Groups, gr)
	}
	return resp
}

type memberResponse struct {
	StudentID    string `json:"student_id"`
	Nom          string `json:"nom"`
	Prenoms      string `json:"prenoms"`
	Reason       string `json:"reason"`
	DossierCount int    `json:"dossier_count"`
}

type groupResponse struct {
	ID            int64            `json:"id"`
	Signature     string           `json:"signature"`
	Status        string           `json:"status"`
	DetectionDate time.Time        `json:"detection_date"`
	AverageScore  int              `json:"average_score"`
	Members       []memberResponse `json:"members,omitempty"`
}

type groupPageResponse struct {
	Groups    []groupResponse `json:"groups"`
	Total     int             `json:"total"`
	Page      int             `json:"page"`
	PageCount int             `json:"page_count"`
}

func toGroupResponse(g models.Group) groupResponse {
	return groupResponse{
		ID:            int64(g.ID),
		Signature:     g.Signature,
		Status:        string(g.Status),
		DetectionDate: g.DetectionDate,
		AverageScore:  g.AverageScore,
	}
}

func toGroupPageResponse(page *models.GroupPage) groupPageResponse {
	resp := groupPageResponse{
		Groups:    []groupResponse{},
		Total:     page.Total,
		Page:      page.Page,
		PageCount: page.PageCount,
	}
	for _, g := range page.Groups {
		gr := toGroupResponse(g.Group)
		for _, m := range g.Members {
			gr.Members = append(gr.Members, memberResponse{
				StudentID:    m.StudentID.String(),
				Nom:          m.Nom,
				Prenoms:      m.Prenoms,
				Reason:       m.Reason,
				DossierCount: m.DossierCount,
			})
		}
		resp.Groups = append(resp.Groups, gr)
	}
	return resp
}

type mergeResponse struct {
	MasterID    string `json:"master_id"`
	MergedCount int    `json:"merged_count"`
}
