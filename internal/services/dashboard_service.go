package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gctidash/internal/compliance"
	"gctidash/internal/config"
	"gctidash/internal/dashboard"
	"gctidash/internal/dataset"
	apperrors "gctidash/internal/errors"
	"gctidash/internal/impact"
	"gctidash/internal/infrastructure"
	"gctidash/internal/ingest"
	"gctidash/internal/stats"
	"gctidash/pkg/contracts/domain"
)

// View statuses
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

// Upload outcomes reported to metrics
const (
	UploadOutcomeOK     = "ok"
	UploadOutcomeFailed = "failed"
)

// DatasetProvider returns generated datasets by key
type DatasetProvider interface {
	Get(ctx context.Context, key dataset.Key) (*dataset.Dataset, error)
	Stats() dataset.CacheStats
}

// MetricsRecorder receives dashboard business events
type MetricsRecorder interface {
	RecordUpload(ctx context.Context, format, outcome string)
	RecordInsufficientData(ctx context.Context, view string)
}

// Settings are the tunables of DashboardService
type Settings struct {
	Defaults       dataset.Key
	Policy         compliance.Policy
	Impact         impact.Params
	HistogramBins  int
	PreviewRows    int
	MaxPreviewRows int
}

// SettingsFromConfig derives Settings from the application configuration
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Defaults: dataset.Key{
			NEvents: cfg.Dataset.NEvents,
			Seed:    cfg.Dataset.Seed,
		},
		Policy:         compliance.Policy{NonComplianceThresholdPct: cfg.Analysis.NonComplianceThresholdPct},
		Impact:         impact.Params{AffectedPerHour: cfg.Analysis.AffectedPerHour},
		HistogramBins:  cfg.Analysis.HistogramBins,
		PreviewRows:    config.DefaultPreviewRows,
		MaxPreviewRows: config.MaxPreviewRows,
	}
}

// DashboardService computes the dashboard views
type DashboardService struct {
	datasets   DatasetProvider
	sessions   *dashboard.Store
	aggregator *compliance.Aggregator
	settings   Settings
	metrics    MetricsRecorder
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewDashboardService creates the service. metrics may be nil.
func NewDashboardService(datasets DatasetProvider, sessions *dashboard.Store, settings Settings, metrics MetricsRecorder, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.HistogramBins <= 0 {
		settings.HistogramBins = stats.DefaultBins
	}
	if settings.PreviewRows <= 0 {
		settings.PreviewRows = config.DefaultPreviewRows
	}
	if settings.MaxPreviewRows < settings.PreviewRows {
		settings.MaxPreviewRows = settings.PreviewRows
	}

	return &DashboardService{
		datasets:   datasets,
		sessions:   sessions,
		aggregator: compliance.NewAggregator(settings.Policy),
		settings:   settings,
		metrics:    metrics,
		tracer:     otel.Tracer(infrastructure.InstrumentationName + "/services"),
		logger:     logger.With(slog.String("component", "dashboard_service")),
	}
}

// Defaults returns the dataset key used when a request names none
func (s *DashboardService) Defaults() dataset.Key {
	return s.settings.Defaults
}

// Settings returns the effective settings
func (s *DashboardService) Settings() Settings {
	return s.settings
}

// DatasetPreview is the head of a generated dataset
type DatasetPreview struct {
	Key     dataset.Key       `json:"key"`
	Total   int               `json:"total_rows"`
	Columns []string          `json:"columns"`
	Rows    []domain.Incident `json:"rows"`
}

// Dataset returns the full dataset for key
func (s *DashboardService) Dataset(ctx context.Context, key dataset.Key) (*dataset.Dataset, error) {
	ds, err := s.datasets.Get(ctx, key)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, fmt.Errorf("load dataset %s: %w", key, err)
	}
	return ds, nil
}

// Preview returns the first limit rows of the dataset for key. A
// non-positive limit selects the default preview size.
func (s *DashboardService) Preview(ctx context.Context, key dataset.Key, limit int) (*DatasetPreview, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.preview")
	defer span.End()

	ds, err := s.Dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.settings.PreviewRows
	}
	limit = min(limit, s.settings.MaxPreviewRows)

	return &DatasetPreview{
		Key:     key,
		Total:   ds.Len(),
		Columns: ds.Columns(),
		Rows:    ds.Head(limit).Incidents(),
	}, nil
}

// TMTIView is the resolution-time view of one priority
type TMTIView struct {
	Status    string           `json:"status"`
	Message   string           `json:"message,omitempty"`
	Key       dataset.Key      `json:"key"`
	Priority  domain.Priority  `json:"priority"`
	Summary   *stats.Summary   `json:"summary,omitempty"`
	Histogram *stats.Histogram `json:"histogram,omitempty"`
}

// TMTI summarizes resolution minutes of priority p. A priority with no rows
// yields an insufficient_data view, not an error.
func (s *DashboardService) TMTI(ctx context.Context, key dataset.Key, p domain.Priority) (*TMTIView, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.tmti",
		trace.WithAttributes(attribute.String("priority", string(p))))
	defer span.End()

	ds, err := s.Dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	view := &TMTIView{Status: StatusOK, Key: key, Priority: p}

	summary, err := stats.SummarizePriority(ds, p)
	if errors.Is(err, stats.ErrInsufficientData) {
		s.insufficient(ctx, "tmti")
		view.Status = StatusInsufficientData
		view.Message = fmt.Sprintf("No %s-priority incidents in the dataset", p)
		return view, nil
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	view.Summary = &summary

	hist, err := stats.NewHistogram(stats.ResolutionByPriority(ds, p), s.settings.HistogramBins)
	if err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}
	view.Histogram = &hist

	return view, nil
}

// ComplianceView is the compliance and risk view of a dataset
type ComplianceView struct {
	Status  string             `json:"status"`
	Message string             `json:"message,omitempty"`
	Key     dataset.Key        `json:"key"`
	Report  *compliance.Report `json:"report,omitempty"`
}

// Compliance aggregates authorization, event and risk categories
func (s *DashboardService) Compliance(ctx context.Context, key dataset.Key) (*ComplianceView, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.compliance")
	defer span.End()

	ds, err := s.Dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	view := &ComplianceView{Status: StatusOK, Key: key}
	report, err := s.aggregator.Report(ds)
	if compliance.IsEmpty(err) {
		s.insufficient(ctx, "compliance")
		view.Status = StatusInsufficientData
		view.Message = "The dataset has no rows"
		return view, nil
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	view.Report = &report
	return view, nil
}

// ImpactView is the social-impact view, cross-referenced with the session
// upload when one is present
type ImpactView struct {
	Status         string                 `json:"status"`
	Message        string                 `json:"message,omitempty"`
	Key            dataset.Key            `json:"key"`
	Impact         impact.Impact          `json:"impact"`
	UploadName     string                 `json:"upload_name,omitempty"`
	CrossReference *impact.CrossReference `json:"cross_reference,omitempty"`
}

// Impact translates High-priority downtime into affected population. When
// sessionID names a session holding an upload, the estimate is distributed
// over the upload's provinces.
func (s *DashboardService) Impact(ctx context.Context, key dataset.Key, sessionID string) (*ImpactView, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.impact")
	defer span.End()

	ds, err := s.Dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	imp := impact.Translate(ds, s.settings.Impact)
	view := &ImpactView{Status: StatusOK, Key: key, Impact: imp}
	if imp.HighPriorityIncidents == 0 {
		s.insufficient(ctx, "impact")
		view.Status = StatusInsufficientData
		view.Message = "No High-priority incidents to translate"
	}

	if sessionID == "" {
		return view, nil
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil || !sess.HasUpload() {
		return view, nil
	}

	xref := impact.Distribute(imp, ingest.Geographic(sess.Upload))
	view.UploadName = sess.UploadName
	view.CrossReference = &xref
	return view, nil
}

// Overview is the home page summary of a dataset
type Overview struct {
	Key           dataset.Key        `json:"key"`
	Rows          int                `json:"rows"`
	Priorities    []compliance.Count `json:"priorities"`
	HighTMTI      *stats.Summary     `json:"high_tmti,omitempty"`
	NonCompliance *compliance.Rate   `json:"non_compliance,omitempty"`
	Impact        impact.Impact      `json:"impact"`
	Cache         dataset.CacheStats `json:"cache"`
}

// Overview gathers the headline numbers of every page
func (s *DashboardService) Overview(ctx context.Context, key dataset.Key) (*Overview, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.overview")
	defer span.End()

	ds, err := s.Dataset(ctx, key)
	if err != nil {
		return nil, err
	}

	ov := &Overview{
		Key:    key,
		Rows:   ds.Len(),
		Impact: impact.Translate(ds, s.settings.Impact),
		Cache:  s.datasets.Stats(),
	}
	for _, p := range domain.Priorities() {
		ov.Priorities = append(ov.Priorities, compliance.Count{Label: string(p), Count: ds.ByPriority(p).Len()})
	}
	if summary, err := stats.SummarizePriority(ds, domain.PriorityHigh); err == nil {
		ov.HighTMTI = &summary
	}
	if rate, err := s.aggregator.NonCompliance(ds); err == nil {
		ov.NonCompliance = &rate
	}
	return ov, nil
}

// UploadResult describes a successfully parsed upload
type UploadResult struct {
	Name    string              `json:"name"`
	Format  ingest.Format       `json:"format"`
	Columns []string            `json:"columns"`
	Rows    int                 `json:"rows"`
	Preview [][]string          `json:"preview"`
	Geo     ingest.GeoBreakdown `json:"geo"`
}

// Upload parses the file and stores it on the session. A parse failure is
// recorded on the session, which stays usable, and returned wrapping
// ingest.ErrParse.
func (s *DashboardService) Upload(ctx context.Context, sessionID, filename string, r io.Reader) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.upload",
		trace.WithAttributes(attribute.String("file", filepath.Base(filename))))
	defer span.End()

	if _, err := s.sessions.Get(sessionID); err != nil {
		return nil, err
	}

	format := uploadFormat(filename)
	table, err := ingest.Parse(filename, r)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.recordUpload(ctx, format, UploadOutcomeFailed)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("file", filepath.Base(filename)),
			slog.String("error", err.Error()))
		if _, serr := s.sessions.SetUploadError(ctx, sessionID, filepath.Base(filename), err); serr != nil {
			return nil, serr
		}
		return nil, err
	}

	if _, err := s.sessions.SetUpload(ctx, sessionID, table); err != nil {
		return nil, err
	}
	s.recordUpload(ctx, format, UploadOutcomeOK)
	s.logger.InfoContext(ctx, "upload parsed",
		slog.String("file", table.Name),
		slog.String("format", string(table.Format)),
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)))

	return s.uploadResult(table, s.settings.PreviewRows), nil
}

// UploadPreview returns the upload of the session with up to limit rows
func (s *DashboardService) UploadPreview(ctx context.Context, sessionID string, limit int) (*UploadResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.HasUpload() {
		return nil, ErrNoUpload
	}
	if limit <= 0 {
		limit = s.settings.PreviewRows
	}
	return s.uploadResult(sess.Upload, min(limit, s.settings.MaxPreviewRows)), nil
}

// Geographic returns the province and hemoglobin breakdown of the session upload
func (s *DashboardService) Geographic(ctx context.Context, sessionID string) (*ingest.GeoBreakdown, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.HasUpload() {
		return nil, ErrNoUpload
	}
	geo := ingest.Geographic(sess.Upload)
	return &geo, nil
}

// ClearUpload drops the upload of the session
func (s *DashboardService) ClearUpload(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.sessions.ClearUpload(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

func (s *DashboardService) uploadResult(t *ingest.Table, limit int) *UploadResult {
	return &UploadResult{
		Name:    t.Name,
		Format:  t.Format,
		Columns: t.Columns,
		Rows:    t.Len(),
		Preview: t.Head(limit).Rows,
		Geo:     ingest.Geographic(t),
	}
}

// SessionView is the client-visible state of a session
type SessionView struct {
	dashboard.Session
	Title      string     `json:"title"`
	Pages      []PageLink `json:"pages"`
	UploadRows int        `json:"upload_rows,omitempty"`
}

// PageLink is one navigation entry
type PageLink struct {
	Page    dashboard.Page `json:"page"`
	Title   string         `json:"title"`
	Current bool           `json:"current"`
}

func newSessionView(sess dashboard.Session) *SessionView {
	view := &SessionView{
		Session:    sess,
		Title:      sess.Page.Title(),
		UploadRows: sess.Upload.Len(),
	}
	for _, p := range dashboard.Pages() {
		view.Pages = append(view.Pages, PageLink{Page: p, Title: p.Title(), Current: p == sess.Page})
	}
	return view
}

// EnsureSession returns the session named id, creating a new one when id is
// empty or unknown. created reports whether a new session was started.
func (s *DashboardService) EnsureSession(ctx context.Context, id string) (view *SessionView, created bool) {
	if id != "" {
		if sess, err := s.sessions.Get(id); err == nil {
			return newSessionView(sess), false
		}
	}
	return newSessionView(s.sessions.Create(ctx)), true
}

// Session returns the state of session id
func (s *DashboardService) Session(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

// Navigate moves session id to the named page
func (s *DashboardService) Navigate(ctx context.Context, id, page string) (*SessionView, error) {
	p, err := dashboard.ParsePage(page)
	if err != nil {
		return nil, apperrors.NewAppValidationError(err.Error()).WithContext("page", page)
	}
	sess, err := s.sessions.Navigate(ctx, id, p)
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

// SetPreview sets the raw-data preview flag of session id. A nil show flips
// the current value.
func (s *DashboardService) SetPreview(ctx context.Context, id string, show *bool) (*SessionView, error) {
	var (
		sess dashboard.Session
		err  error
	)
	if show == nil {
		sess, err = s.sessions.TogglePreview(ctx, id)
	} else {
		sess, err = s.sessions.SetPreview(ctx, id, *show)
	}
	if err != nil {
		return nil, err
	}
	return newSessionView(sess), nil
}

func (s *DashboardService) insufficient(ctx context.Context, view string) {
	if s.metrics != nil {
		s.metrics.RecordInsufficientData(ctx, view)
	}
	s.logger.DebugContext(ctx, "insufficient data", slog.String("view", view))
}

func (s *DashboardService) recordUpload(ctx context.Context, format, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordUpload(ctx, format, outcome)
	}
}

// uploadFormat returns the lowercased extension of filename for metrics
func uploadFormat(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	switch ext {
	case string(ingest.FormatCSV), string(ingest.FormatXLSX):
		return ext
	case "":
		return "none"
	default:
		return "other"
	}
}
