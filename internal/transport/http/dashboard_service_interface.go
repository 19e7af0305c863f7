package http

import (
	"context"
	"io"

	"gctidash/internal/dataset"
	"gctidash/internal/ingest"
	"gctidash/internal/services"
	"gctidash/pkg/contracts/domain"
)

// DashboardServiceInterface defines the operations the dashboard handlers call
type DashboardServiceInterface interface {
	Defaults() dataset.Key
	Settings() services.Settings

	Dataset(ctx context.Context, key dataset.Key) (*dataset.Dataset, error)
	Preview(ctx context.Context, key dataset.Key, limit int) (*services.DatasetPreview, error)
	Overview(ctx context.Context, key dataset.Key) (*services.Overview, error)
	TMTI(ctx context.Context, key dataset.Key, p domain.Priority) (*services.TMTIView, error)
	Compliance(ctx context.Context, key dataset.Key) (*services.ComplianceView, error)
	Impact(ctx context.Context, key dataset.Key, sessionID string) (*services.ImpactView, error)

	Upload(ctx context.Context, sessionID, filename string, r io.Reader) (*services.UploadResult, error)
	UploadPreview(ctx context.Context, sessionID string, limit int) (*services.UploadResult, error)
	Geographic(ctx context.Context, sessionID string) (*ingest.GeoBreakdown, error)
	ClearUpload(ctx context.Context, sessionID string) (*services.SessionView, error)

	EnsureSession(ctx context.Context, id string) (*services.SessionView, bool)
	Session(ctx context.Context, id string) (*services.SessionView, error)
	Navigate(ctx context.Context, id, page string) (*services.SessionView, error)
	SetPreview(ctx context.Context, id string, show *bool) (*services.SessionView, error)
}

var _ DashboardServiceInterface = (*services.DashboardService)(nil)
