package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable-api/pkg/mip"
	"github.com/noah-isme/sma-timetable-api/pkg/mip/pbsolver"
	"github.com/noah-isme/sma-timetable-api/pkg/tracing"
)

const solveCachePrefix = "solve"

type timetableRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, termID, classID, keepID string) (int64, error)
}

type timetableSlotRepository interface {
	UpsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlot) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type gridRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TimetableConfig governs timetable generation.
type TimetableConfig struct {
	ProposalTTL        time.Duration
	CacheTTL           time.Duration
	CompactnessPenalty float64
	MaxAssignments     int
	// Solver defaults to the pseudo-boolean solver without a time limit.
	Solver mip.Solver
}

// TimetableService builds and solves timetable models and persists accepted proposals.
type TimetableService struct {
	timetables timetableRepository
	slots      timetableSlotRepository
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	solver     mip.Solver
	store      *proposalStore
	csv        gridRenderer
	pdf        titledRenderer
	cfg        TimetableConfig
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	timetables timetableRepository,
	slots timetableSlotRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.CompactnessPenalty <= 0 {
		cfg.CompactnessPenalty = timetable.DefaultCompactnessPenalty
	}
	solver := cfg.Solver
	if solver == nil {
		solver = pbsolver.New(pbsolver.WithLogger(logger))
	}
	return &TimetableService{
		timetables: timetables,
		slots:      slots,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		solver:     solver,
		store:      newProposalStore(cfg.ProposalTTL, cache),
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		cfg:        cfg,
	}
}

// solveResult is the cacheable part of a generation: it depends only on the grid and its inputs.
type solveResult struct {
	Grid  [][]string                  `json:"grid"`
	Slots []dto.TimetableSlotProposal `json:"slots"`
	Stats dto.SolveStats              `json:"stats"`
}

// Generate solves the requested grid and stores the result as a proposal.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	grid, err := validateRequest(s.validator, req)
	if err != nil {
		return nil, err
	}
	size := len(grid.Days) * len(grid.Hours) * len(grid.Subjects)
	if s.cfg.MaxAssignments > 0 && size > s.cfg.MaxAssignments {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLong, fmt.Sprintf("grid has %d day-hour-subject combinations, limit is %d", size, s.cfg.MaxAssignments))
	}

	ctx, span := tracing.Tracer().Start(ctx, "TimetableService.Generate", trace.WithAttributes(
		attribute.String("timetable.term_id", req.TermID),
		attribute.String("timetable.class_id", req.ClassID),
		attribute.Int("timetable.assignments", size),
	))
	defer span.End()

	key, err := s.solveKey(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint request")
	}

	var result solveResult
	cached := s.cache.Get(ctx, key, &result)
	if cached {
		s.metrics.ObserveSolve(OutcomeCached, 0, 0)
	} else {
		result, err = s.solve(ctx, grid, req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		// Feasible results stopped at the deadline and may improve on a later attempt.
		if result.Stats.Status == mip.Optimal.String() {
			s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
		}
	}
	span.SetAttributes(
		attribute.Bool("timetable.cached", cached),
		attribute.String("timetable.status", result.Stats.Status),
	)

	proposal := timetableProposal{
		ProposalID:      uuid.NewString(),
		TermID:          req.TermID,
		ClassID:         req.ClassID,
		Days:            grid.Days,
		Hours:           grid.Hours,
		HoursPerSubject: grid.HoursPerSubject,
		MaxHoursPerDay:  grid.MaxHoursPerDay,
		Grid:            result.Grid,
		Slots:           result.Slots,
		Stats:           result.Stats,
		CreatedAt:       s.store.now().UTC(),
	}
	s.store.Save(ctx, proposal)
	return proposal.response(cached, proposal.CreatedAt.Add(s.cfg.ProposalTTL)), nil
}

func (s *TimetableService) solve(ctx context.Context, grid timetable.Grid, req dto.GenerateTimetableRequest) (solveResult, error) {
	start := time.Now()
	model, err := timetable.BuildModel(grid, timetable.WithCompactnessPenalty(s.cfg.CompactnessPenalty))
	if err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := model.SetPreferences(toPreferences(req.Preferences)); err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := model.AddHardConstraints(toHardConstraints(req.Constraints)); err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	variables := model.MIP().NumVars()
	err = model.Solve(ctx, s.solver)
	duration := time.Since(start)
	if err != nil {
		outcome, appErr := classifySolveError(err)
		s.metrics.ObserveSolve(outcome, variables, duration)
		s.logger.Warn("timetable solve failed",
			zap.String("request_id", requestid.FromContext(ctx)),
			zap.String("outcome", outcome),
			zap.Int("variables", variables),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return solveResult{}, appErr
	}

	schedule, err := model.Schedule()
	if err != nil {
		return solveResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read solved timetable")
	}
	stats := model.Stats()
	s.metrics.ObserveSolve(stats.Status, variables, duration)
	s.logger.Info("timetable solved",
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("status", stats.Status),
		zap.Float64("objective", stats.Objective),
		zap.Int("extra_days", stats.ExtraDays),
		zap.Int("variables", variables),
		zap.Int("constraints", stats.Constraints),
		zap.Duration("duration", duration),
	)

	slots := schedule.Slots()
	proposals := make([]dto.TimetableSlotProposal, 0, len(slots))
	for _, sl := range slots {
		proposals = append(proposals, dto.TimetableSlotProposal{Day: sl.Day, Hour: sl.Hour, Subject: sl.Subject})
	}
	return solveResult{
		Grid:  schedule.Cells,
		Slots: proposals,
		Stats: dto.SolveStats{
			Variables:      stats.Variables,
			Constraints:    stats.Constraints,
			Groups:         stats.Groups,
			PinnedSlots:    stats.PinnedSlots,
			ForbiddenSlots: stats.ForbiddenSlots,
			Status:         stats.Status,
			Objective:      stats.Objective,
			ExtraDays:      stats.ExtraDays,
			DurationMillis: duration.Milliseconds(),
		},
	}, nil
}

func classifySolveError(err error) (string, *appErrors.Error) {
	switch {
	case errors.Is(err, timetable.ErrInfeasible):
		return OutcomeInfeasible, appErrors.Wrap(err, appErrors.ErrInfeasible.Code, appErrors.ErrInfeasible.Status, appErrors.ErrInfeasible.Message)
	case errors.Is(err, mip.ErrSolverBusy):
		return OutcomeBusy, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "solver is at capacity, retry later")
	case timetable.IsTimeout(err):
		return OutcomeTimeout, appErrors.Wrap(err, appErrors.ErrSolverTimeout.Code, appErrors.ErrSolverTimeout.Status, appErrors.ErrSolverTimeout.Message)
	default:
		return OutcomeError, appErrors.Wrap(err, appErrors.ErrSolverFailure.Code, appErrors.ErrSolverFailure.Status, appErrors.ErrSolverFailure.Message)
	}
}

// solveKey fingerprints everything the solution depends on. Entry order is kept because later
// preferences overwrite earlier ones.
func (s *TimetableService) solveKey(req dto.GenerateTimetableRequest) (string, error) {
	payload, err := json.Marshal(struct {
		Days            []string              `json:"d"`
		Hours           []string              `json:"h"`
		HoursPerSubject map[string]int        `json:"s"`
		MaxHoursPerDay  int                   `json:"c"`
		Preferences     []dto.PreferenceEntry `json:"p"`
		Constraints     []dto.ConstraintEntry `json:"k"`
		Penalty         float64               `json:"w"`
	}{req.Days, req.Hours, req.HoursPerSubject, req.MaxHoursPerDay, req.Preferences, req.Constraints, s.cfg.CompactnessPenalty})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return CacheKey(solveCachePrefix, hex.EncodeToString(sum[:])), nil
}

// Save persists a proposal as a new timetable version together with its slots.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (*dto.SaveTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, ok := s.store.Get(ctx, req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	metaBytes, err := json.Marshal(models.TimetableMeta{
		Days:            proposal.Days,
		Hours:           proposal.Hours,
		HoursPerSubject: proposal.HoursPerSubject,
		MaxHoursPerDay:  proposal.MaxHoursPerDay,
		Objective:       proposal.Stats.Objective,
		ExtraDays:       proposal.Stats.ExtraDays,
		SolverStatus:    proposal.Stats.Status,
		ProposalID:      proposal.ProposalID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.Timetable{
		TermID:  proposal.TermID,
		ClassID: proposal.ClassID,
		Status:  models.TimetableStatusDraft,
		Meta:    types.JSONText(metaBytes),
	}
	if err = s.timetables.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return nil, err
	}

	slotModels := slotsForProposal(record.ID, proposal)
	if err = s.slots.UpsertBatch(ctx, tx, slotModels); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable slots")
		return nil, err
	}

	if req.Publish {
		if _, err = s.timetables.ArchivePublished(ctx, tx, record.TermID, record.ClassID, record.ID); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous timetables")
			return nil, err
		}
		if err = s.timetables.UpdateStatus(ctx, tx, record.ID, models.TimetableStatusPublished); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
			return nil, err
		}
		record.Status = models.TimetableStatusPublished
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return nil, err
	}

	s.store.Delete(ctx, req.ProposalID)
	s.logger.Info("timetable saved",
		zap.String("timetable_id", record.ID),
		zap.String("term_id", record.TermID),
		zap.String("class_id", record.ClassID),
		zap.Int("version", record.Version),
		zap.String("status", string(record.Status)),
	)
	return &dto.SaveTimetableResponse{
		TimetableID: record.ID,
		Version:     record.Version,
		Status:      record.Status,
		SlotCount:   len(slotModels),
	}, nil
}

// slotsForProposal numbers occupied cells row-major over the [hour][day] grid.
func slotsForProposal(timetableID string, p timetableProposal) []models.TimetableSlot {
	slots := make([]models.TimetableSlot, 0, len(p.Slots))
	for h, hour := range p.Hours {
		for d, day := range p.Days {
			if h >= len(p.Grid) || d >= len(p.Grid[h]) || p.Grid[h][d] == "" {
				continue
			}
			slots = append(slots, models.TimetableSlot{
				TimetableID: timetableID,
				Day:         day,
				Hour:        hour,
				Subject:     p.Grid[h][d],
				Position:    h*len(p.Days) + d,
			})
		}
	}
	return slots
}

// List returns stored timetable versions for a class-term pair.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "termId and classId are required")
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = 20
	}
	list, total, err := s.timetables.List(ctx, models.TimetableFilter{
		TermID:   query.TermID,
		ClassID:  query.ClassID,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

// GetSlots returns the slots of a stored timetable.
func (s *TimetableService) GetSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	if timetableID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	if _, err := s.find(ctx, timetableID); err != nil {
		return nil, err
	}
	slots, err := s.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable slots")
	}
	return slots, nil
}

// Delete removes a stored timetable version unless it is published.
func (s *TimetableService) Delete(ctx context.Context, timetableID string) error {
	record, err := s.find(ctx, timetableID)
	if err != nil {
		return err
	}
	if record.Status == models.TimetableStatusPublished {
		return appErrors.Clone(appErrors.ErrConflict, "published timetables cannot be deleted")
	}
	if err := s.timetables.Delete(ctx, timetableID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

func (s *TimetableService) find(ctx context.Context, timetableID string) (*models.Timetable, error) {
	record, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return record, nil
}

// Export renders a pending proposal as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, proposalID string, format dto.ExportFormat) (*dto.ExportedFile, error) {
	proposal, ok := s.store.Get(ctx, proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	title := fmt.Sprintf("Timetable %s / %s", proposal.ClassID, proposal.TermID)
	return s.render(export.GridDataset(proposal.Days, proposal.Hours, proposal.Grid), "timetable-proposal-"+proposalID, title, format)
}

// ExportTimetable renders a stored timetable as CSV or PDF.
func (s *TimetableService) ExportTimetable(ctx context.Context, timetableID string, format dto.ExportFormat) (*dto.ExportedFile, error) {
	record, err := s.find(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	var meta models.TimetableMeta
	if err := record.Meta.Unmarshal(&meta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode timetable metadata")
	}
	slots, err := s.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable slots")
	}
	grid := gridFromSlots(meta.Days, meta.Hours, slots)
	title := fmt.Sprintf("Timetable %s / %s v%d", record.ClassID, record.TermID, record.Version)
	name := fmt.Sprintf("timetable-%s-v%d", record.ClassID, record.Version)
	return s.render(export.GridDataset(meta.Days, meta.Hours, grid), name, title, format)
}

func gridFromSlots(days, hours []string, slots []models.TimetableSlot) [][]string {
	dayIdx := make(map[string]int, len(days))
	for i, d := range days {
		dayIdx[d] = i
	}
	hourIdx := make(map[string]int, len(hours))
	for i, h := range hours {
		hourIdx[h] = i
	}
	grid := make([][]string, len(hours))
	for h := range grid {
		grid[h] = make([]string, len(days))
	}
	for _, slot := range slots {
		d, okDay := dayIdx[slot.Day]
		h, okHour := hourIdx[slot.Hour]
		if okDay && okHour {
			grid[h][d] = slot.Subject
		}
	}
	return grid
}

func (s *TimetableService) render(data export.Dataset, name, title string, format dto.ExportFormat) (*dto.ExportedFile, error) {
	var (
		content     []byte
		contentType string
		err         error
	)
	switch format {
	case dto.ExportFormatCSV, "":
		format = dto.ExportFormatCSV
		content, err = s.csv.Render(data)
		contentType = "text/csv"
	case dto.ExportFormatPDF:
		content, err = s.pdf.Render(data, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return &dto.ExportedFile{
		FileName:    fmt.Sprintf("%s.%s", name, format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

// ExampleRequest is the built-in demo grid: five days, four hours, eight subjects of two or three
// hours each, a preference for SB_3 on Monday at h_11 and SB_1 pinned on Monday at h_12.
func ExampleRequest() dto.GenerateTimetableRequest {
	hoursPerSubject := make(map[string]int, 8)
	for i := 0; i < 8; i++ {
		hours := 2
		if i%2 == 0 {
			hours = 3
		}
		hoursPerSubject[fmt.Sprintf("SB_%d", i)] = hours
	}
	return dto.GenerateTimetableRequest{
		TermID:          "example",
		ClassID:         "example",
		Days:            []string{"l", "m", "x", "j", "v"},
		Hours:           []string{"h_10", "h_11", "h_12", "h_13"},
		HoursPerSubject: hoursPerSubject,
		MaxHoursPerDay:  2,
		Preferences:     []dto.PreferenceEntry{{Day: "l", Hour: "h_11", Subject: "SB_3", Weight: 4}},
		Constraints:     []dto.ConstraintEntry{{Day: "l", Hour: "h_12", Subject: "SB_1", Flag: 1}},
	}
}

// Example solves the demo grid.
func (s *TimetableService) Example(ctx context.Context) (*dto.GenerateTimetableResponse, error) {
	return s.Generate(ctx, ExampleRequest())
}

// validateRequest applies the tag rules and the grid invariants, and checks that every preference
// and constraint names a slot of the grid.
func validateRequest(v *validator.Validate, req dto.GenerateTimetableRequest) (timetable.Grid, error) {
	if err := v.Struct(req); err != nil {
		return timetable.Grid{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	grid := gridFromRequest(req)
	if err := grid.Validate(); err != nil {
		return timetable.Grid{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	for _, p := range req.Preferences {
		if err := grid.CheckSlot(p.Day, p.Hour, p.Subject); err != nil {
			return timetable.Grid{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "preference: "+err.Error())
		}
	}
	for _, c := range req.Constraints {
		if err := grid.CheckSlot(c.Day, c.Hour, c.Subject); err != nil {
			return timetable.Grid{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "constraint: "+err.Error())
		}
	}
	return grid, nil
}

func gridFromRequest(req dto.GenerateTimetableRequest) timetable.Grid {
	subjects := make([]string, 0, len(req.HoursPerSubject))
	hours := make(map[string]int, len(req.HoursPerSubject))
	for subject, h := range req.HoursPerSubject {
		subjects = append(subjects, subject)
		hours[subject] = h
	}
	sort.Strings(subjects)
	return timetable.Grid{
		Days:            append([]string(nil), req.Days...),
		Hours:           append([]string(nil), req.Hours...),
		Subjects:        subjects,
		HoursPerSubject: hours,
		MaxHoursPerDay:  req.MaxHoursPerDay,
	}
}

func toPreferences(entries []dto.PreferenceEntry) []timetable.Preference {
	out := make([]timetable.Preference, 0, len(entries))
	for _, e := range entries {
		out = append(out, timetable.Preference{Day: e.Day, Hour: e.Hour, Subject: e.Subject, Weight: e.Weight})
	}
	return out
}

func toHardConstraints(entries []dto.ConstraintEntry) []timetable.HardConstraint {
	out := make([]timetable.HardConstraint, 0, len(entries))
	for _, e := range entries {
		out = append(out, timetable.HardConstraint{Day: e.Day, Hour: e.Hour, Subject: e.Subject, Flag: e.Flag})
	}
	return out
}
