package http

import (
	"context"
	"net/http"

	"rosterkit/internal/services"
	"rosterkit/pkg/contracts/domain"
)

// DataServiceInterface defines the interface for roster data operations
type DataServiceInterface interface {
	GetArtifacts(ctx context.Context) ([]services.Artifact, error)
	GetCleanedRecords(ctx context.Context, limit, offset int) ([]map[string]string, int, error)
	GetEmployeeRecords(ctx context.Context) ([]domain.EmployeeRecord, error)
	GetRosterStats(ctx context.Context) (*domain.RosterStats, error)
	GetSummary(ctx context.Context) (*domain.CleaningSummary, error)
	DownloadFile(ctx context.Context, w http.ResponseWriter, r *http.Request, fileType, filename string) error
}
