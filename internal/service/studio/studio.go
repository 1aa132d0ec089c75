// Package studio связывает расчёт превью, хранилище дизайнов и фоновую
// оптимизацию.
package studio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"doe-studio/internal/doe"
	"doe-studio/internal/optimize"
	"doe-studio/internal/preview"
	"doe-studio/internal/storage"
)

var (
	// ErrNoJob is returned by OptimizeStatus when the design was not
	// optimized since the process started.
	ErrNoJob = errors.New("no optimization job for design")
	// ErrInvalidInput marks requests that can never succeed as sent.
	ErrInvalidInput = errors.New("invalid input")
)

type Storage interface {
	GetDesign(ctx context.Context, id int64, userID string) (*storage.Design, error)
	CreateDesign(ctx context.Context, d storage.Design) (int64, error)
	UpdateDesign(ctx context.Context, id int64, userID string, p storage.DesignPatch) error
	CompleteOptimization(ctx context.Context, id int64, userID string, result json.RawMessage) error
	GetTemplate(ctx context.Context, id int64) (*storage.Template, error)
	GetCredits(ctx context.Context, userID string) (int, error)
}

type JobRunner interface {
	Start(designID int64, task optimize.Task) (optimize.Job, error)
	Status(designID int64) (optimize.Job, bool)
}

type Service struct {
	log       *slog.Logger
	storage   Storage
	optimizer optimize.Optimizer
	runner    JobRunner
	opts      preview.Options
}

func NewStudioService(log *slog.Logger, storage Storage, optimizer optimize.Optimizer, runner JobRunner, opts preview.Options) *Service {
	return &Service{
		log:       log,
		storage:   storage,
		optimizer: optimizer,
		runner:    runner,
		opts:      opts,
	}
}

// PreviewResult is the preview of a parameter set together with the
// parameters after defaults and corrections.
type PreviewResult struct {
	Preview    preview.Data `json:"preview"`
	Parameters doe.Raw      `json:"parameters"`
}

// Preview is the stateless preview of the live form state.
func (s *Service) Preview(raw doe.Raw) PreviewResult {
	data, normalized := preview.FromRaw(raw, s.opts)
	return PreviewResult{Preview: data, Parameters: normalized}
}

// NewDesign is the input of CreateDesign.
type NewDesign struct {
	Name       string  `json:"name"`
	Mode       string  `json:"mode"`
	Parameters doe.Raw `json:"parameters"`
}

// CreateDesign stores a new draft with normalized parameters and their preview.
func (s *Service) CreateDesign(ctx context.Context, userID string, in NewDesign) (*storage.Design, error) {
	const op = "service.studio.CreateDesign"

	raw := in.Parameters.Clone()
	if in.Mode != "" {
		raw[doe.FieldMode] = in.Mode
	}

	d, err := s.designFromRaw(userID, in.Name, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.storage.CreateDesign(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := s.storage.GetDesign(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: reload: %w", op, err)
	}
	return created, nil
}

// CreateFromTemplate copies an active template into a new draft. An empty
// name becomes "<template name> Copy".
func (s *Service) CreateFromTemplate(ctx context.Context, userID string, templateID int64, name string) (*storage.Design, error) {
	const op = "service.studio.CreateFromTemplate"

	tpl, err := s.storage.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// скрытые шаблоны пользователям недоступны
	if !tpl.IsActive {
		return nil, fmt.Errorf("%s: template %d inactive: %w", op, templateID, storage.ErrNotFound)
	}

	raw, err := decodeRaw(tpl.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%s: template %d parameters: %w", op, templateID, err)
	}
	if !raw.Has(doe.FieldMode) {
		raw[doe.FieldMode] = tpl.Mode
	}
	if name == "" {
		name = tpl.Name + " Copy"
	}

	return s.CreateDesign(ctx, userID, NewDesign{Name: name, Parameters: raw})
}

// DesignUpdate is a partial update; nil fields are left as they are.
type DesignUpdate struct {
	Name               *string         `json:"name"`
	Status             *string         `json:"status"`
	Parameters         doe.Raw         `json:"parameters"`
	PreviewData        json.RawMessage `json:"previewData"`
	OptimizationResult json.RawMessage `json:"optimizationResult"`
	PhaseMapURL        *string         `json:"phaseMapUrl"`
}

// UpdateDesign applies u. New parameters are normalized and, unless the
// caller sends its own preview, get a freshly computed one.
func (s *Service) UpdateDesign(ctx context.Context, userID string, id int64, u DesignUpdate) (*storage.Design, error) {
	const op = "service.studio.UpdateDesign"

	if u.Status != nil && *u.Status != storage.StatusDraft && *u.Status != storage.StatusOptimized {
		return nil, fmt.Errorf("%s: %w: status %q", op, ErrInvalidInput, *u.Status)
	}

	patch := storage.DesignPatch{
		Name:               u.Name,
		Status:             u.Status,
		PreviewData:        u.PreviewData,
		OptimizationResult: u.OptimizationResult,
		PhaseMapURL:        u.PhaseMapURL,
	}

	if u.Parameters != nil {
		if err := checkMode(u.Parameters); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		data, normalized := preview.FromRaw(u.Parameters, s.opts)
		params, err := json.Marshal(normalized)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal parameters: %w", op, err)
		}
		mode := normalized.String(doe.FieldMode)
		patch.Parameters = params
		patch.Mode = &mode

		if patch.PreviewData == nil {
			if patch.PreviewData, err = json.Marshal(data); err != nil {
				return nil, fmt.Errorf("%s: marshal preview: %w", op, err)
			}
		}
	}

	if patch.Empty() {
		return nil, fmt.Errorf("%s: %w: nothing to update", op, ErrInvalidInput)
	}

	if err := s.storage.UpdateDesign(ctx, id, userID, patch); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	d, err := s.storage.GetDesign(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: reload: %w", op, err)
	}
	return d, nil
}

// RefreshPreview recomputes the preview of a stored design and persists it
// together with the normalized parameters.
func (s *Service) RefreshPreview(ctx context.Context, userID string, id int64) (*PreviewResult, error) {
	const op = "service.studio.RefreshPreview"

	d, err := s.storage.GetDesign(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw, err := decodeRaw(d.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%s: design %d parameters: %w", op, id, err)
	}

	data, normalized := preview.FromRaw(raw, s.opts)

	params, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal parameters: %w", op, err)
	}
	previewJSON, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal preview: %w", op, err)
	}
	mode := normalized.String(doe.FieldMode)

	err = s.storage.UpdateDesign(ctx, id, userID, storage.DesignPatch{
		Mode:        &mode,
		Parameters:  params,
		PreviewData: previewJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PreviewResult{Preview: data, Parameters: normalized}, nil
}

// StartOptimize checks the user's credits and queues an optimization of
// the design. The credit is charged only when the result is saved.
func (s *Service) StartOptimize(ctx context.Context, userID string, id int64) (optimize.Job, error) {
	const op = "service.studio.StartOptimize"

	var (
		design  *storage.Design
		credits int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		design, err = s.storage.GetDesign(gCtx, id, userID)
		if err != nil {
			return fmt.Errorf("design: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		credits, err = s.storage.GetCredits(gCtx, userID)
		if err != nil {
			return fmt.Errorf("credits: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return optimize.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	if credits <= 0 {
		return optimize.Job{}, fmt.Errorf("%s: %w", op, storage.ErrNoCredits)
	}

	raw, err := decodeRaw(design.Parameters)
	if err != nil {
		return optimize.Job{}, fmt.Errorf("%s: design %d parameters: %w", op, id, err)
	}
	params, _, issues := doe.Load(raw)
	if len(issues) > 0 {
		return optimize.Job{}, fmt.Errorf("%s: %w: %s: %s", op, ErrInvalidInput, issues[0].Field, issues[0].Message)
	}

	job, err := s.runner.Start(id, s.optimizeTask(userID, id, params))
	if err != nil {
		return job, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("optimization queued",
		slog.String("op", op),
		slog.Int64("design_id", id),
		slog.String("job_id", job.ID),
	)
	return job, nil
}

func (s *Service) optimizeTask(userID string, id int64, params doe.Params) optimize.Task {
	return func(ctx context.Context) error {
		res, err := s.optimizer.Optimize(ctx, params)
		if err != nil {
			return err
		}
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		return s.storage.CompleteOptimization(ctx, id, userID, data)
	}
}

// OptimizeStatus returns the last optimization job of the user's design.
func (s *Service) OptimizeStatus(ctx context.Context, userID string, id int64) (optimize.Job, error) {
	const op = "service.studio.OptimizeStatus"

	// чужие дизайны не раскрываем даже статусом задачи
	if _, err := s.storage.GetDesign(ctx, id, userID); err != nil {
		return optimize.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	job, ok := s.runner.Status(id)
	if !ok {
		return optimize.Job{}, fmt.Errorf("%s: design %d: %w", op, id, ErrNoJob)
	}
	return job, nil
}

func (s *Service) designFromRaw(userID, name string, raw doe.Raw) (storage.Design, error) {
	if name == "" {
		return storage.Design{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := checkMode(raw); err != nil {
		return storage.Design{}, err
	}

	data, normalized := preview.FromRaw(raw, s.opts)

	params, err := json.Marshal(normalized)
	if err != nil {
		return storage.Design{}, fmt.Errorf("marshal parameters: %w", err)
	}
	previewJSON, err := json.Marshal(data)
	if err != nil {
		return storage.Design{}, fmt.Errorf("marshal preview: %w", err)
	}

	return storage.Design{
		UserID:      userID,
		Name:        name,
		Mode:        normalized.String(doe.FieldMode),
		Status:      storage.StatusDraft,
		Parameters:  params,
		PreviewData: previewJSON,
	}, nil
}

// checkMode rejects a mode the studio does not know. A missing mode is
// filled with the default later.
func checkMode(raw doe.Raw) error {
	if raw.Has(doe.FieldMode) && !doe.Mode(raw.String(doe.FieldMode)).Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, raw.String(doe.FieldMode))
	}
	return nil
}

func decodeRaw(data json.RawMessage) (doe.Raw, error) {
	raw := doe.Raw{}
	if len(data) == 0 || string(data) == "null" {
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
