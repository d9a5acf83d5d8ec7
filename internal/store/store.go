// Package store persists questionnaires, assessments, allocations, portfolios
// and the security catalog behind a single interface with Postgres and SQLite
// backends.
package store

import (
	"context"

	"github.com/akhilrasineni/Risk-Profiling-System/internal/model"
)

// AssessmentFilter specifies criteria for listing assessments.
type AssessmentFilter struct {
	ClientName      string                 `json:"client_name,omitempty"`
	QuestionnaireID string                 `json:"questionnaire_id,omitempty"`
	Status          model.AssessmentStatus `json:"status,omitempty"`
	Limit           int                    `json:"limit,omitempty"`
	Offset          int                    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the suitability pipeline.
// Scores are stored on the canonical 0-100 scale where applicable; any
// conversion from legacy 0-1 values happens here, once, not at read sites.
type Store interface {
	// Questionnaires
	SaveQuestionnaire(ctx context.Context, q *model.Questionnaire) error
	GetQuestionnaire(ctx context.Context, id string) (*model.Questionnaire, error)

	// Assessments (append-only history; rejected rows are marked, not deleted)
	CreateAssessment(ctx context.Context, a *model.Assessment) error
	GetAssessment(ctx context.Context, id string) (*model.Assessment, error)
	UpdateAssessment(ctx context.Context, a *model.Assessment) error
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]model.Assessment, error)

	// Allocations (one accepted model per assessment)
	SaveAllocation(ctx context.Context, assessmentID string, alloc *model.AllocationModel) error
	GetAllocation(ctx context.Context, assessmentID string) (*model.AllocationModel, error)

	// Portfolios
	CreatePortfolio(ctx context.Context, p *model.Portfolio) error
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)
	UpdatePortfolio(ctx context.Context, p *model.Portfolio) error

	// Security catalog
	UpsertSecurity(ctx context.Context, s model.Security) error
	GetSecurity(ctx context.Context, id string) (*model.Security, error)
	ListSecuritiesByAssetClass(ctx context.Context, class model.AssetClass) ([]model.Security, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
