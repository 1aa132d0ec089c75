package studio

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doe-studio/internal/doe"
	"doe-studio/internal/optimize"
	"doe-studio/internal/preview"
	"doe-studio/internal/storage"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetDesign(ctx context.Context, id int64, userID string) (*storage.Design, error) {
	args := m.Called(ctx, id, userID)
	d, _ := args.Get(0).(*storage.Design)
	return d, args.Error(1)
}

func (m *MockStorage) CreateDesign(ctx context.Context, d storage.Design) (int64, error) {
	args := m.Called(ctx, d)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) UpdateDesign(ctx context.Context, id int64, userID string, p storage.DesignPatch) error {
	args := m.Called(ctx, id, userID, p)
	return args.Error(0)
}

func (m *MockStorage) CompleteOptimization(ctx context.Context, id int64, userID string, result json.RawMessage) error {
	args := m.Called(ctx, id, userID, result)
	return args.Error(0)
}

func (m *MockStorage) GetTemplate(ctx context.Context, id int64) (*storage.Template, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*storage.Template)
	return t, args.Error(1)
}

func (m *MockStorage) GetCredits(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Start(designID int64, task optimize.Task) (optimize.Job, error) {
	args := m.Called(designID, task)
	return args.Get(0).(optimize.Job), args.Error(1)
}

func (m *MockRunner) Status(designID int64) (optimize.Job, bool) {
	args := m.Called(designID)
	return args.Get(0).(optimize.Job), args.Bool(1)
}

type MockOptimizer struct {
	mock.Mock
}

func (m *MockOptimizer) Optimize(ctx context.Context, p doe.Params) (*optimize.Result, error) {
	args := m.Called(ctx, p)
	r, _ := args.Get(0).(*optimize.Result)
	return r, args.Error(1)
}

func newService(st *MockStorage, opt *MockOptimizer, run *MockRunner) *Service {
	return NewStudioService(slog.Default(), st, opt, run, preview.Options{})
}

func spotDesign() *storage.Design {
	return &storage.Design{
		ID:         7,
		UserID:     "u1",
		Name:       "dots",
		Mode:       "2d_spot_projector",
		Status:     storage.StatusDraft,
		Parameters: json.RawMessage(`{"mode":"2d_spot_projector","arrayRows":"10","arrayCols":"10"}`),
	}
}

func TestPreview_ReturnsNormalizedParameters(t *testing.T) {
	s := newService(new(MockStorage), new(MockOptimizer), new(MockRunner))

	res := s.Preview(doe.Raw{"mode": "diffuser", "targetType": "size"})

	assert.True(t, res.Preview.IsValid)
	assert.Equal(t, doe.ModeDiffuser, res.Preview.Summary.DOEMode)
	// бесконечная дистанция по умолчанию: размер заменён на угол
	assert.Equal(t, "angle", res.Parameters.String("targetType"))
}

func TestCreateDesign_StoresNormalizedParametersAndPreview(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	st.On("CreateDesign", mock.Anything, mock.MatchedBy(func(d storage.Design) bool {
		var raw doe.Raw
		if err := json.Unmarshal(d.Parameters, &raw); err != nil {
			return false
		}
		var data preview.Data
		if err := json.Unmarshal(d.PreviewData, &data); err != nil {
			return false
		}
		return d.UserID == "u1" &&
			d.Name == "splitter" &&
			d.Mode == "1d_splitter" &&
			d.Status == storage.StatusDraft &&
			raw.String("wavelength") == doe.DefaultWavelength &&
			data.Summary.TotalSpots == 7
	})).Return(int64(3), nil)
	st.On("GetDesign", mock.Anything, int64(3), "u1").Return(&storage.Design{ID: 3, Name: "splitter"}, nil)

	d, err := s.CreateDesign(context.Background(), "u1", NewDesign{
		Name:       "splitter",
		Mode:       "1d_splitter",
		Parameters: doe.Raw{"splitterCount": "7"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.ID)
	st.AssertExpectations(t)
}

func TestCreateDesign_InvalidInput(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	_, err := s.CreateDesign(context.Background(), "u1", NewDesign{Mode: "lens"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateDesign(context.Background(), "u1", NewDesign{Name: "x", Mode: "hologram"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	st.AssertNotCalled(t, "CreateDesign", mock.Anything, mock.Anything)
}

func TestCreateFromTemplate_CopiesNameAndMode(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	st.On("GetTemplate", mock.Anything, int64(2)).Return(&storage.Template{
		ID:         2,
		Name:       "Prism 10°",
		Mode:       "prism",
		Parameters: json.RawMessage(`{"prismDeflectionAngle":"10deg"}`),
		IsActive:   true,
	}, nil)
	st.On("CreateDesign", mock.Anything, mock.MatchedBy(func(d storage.Design) bool {
		return d.Name == "Prism 10° Copy" && d.Mode == "prism"
	})).Return(int64(11), nil)
	st.On("GetDesign", mock.Anything, int64(11), "u1").Return(&storage.Design{ID: 11}, nil)

	d, err := s.CreateFromTemplate(context.Background(), "u1", 2, "")
	require.NoError(t, err)
	assert.Equal(t, int64(11), d.ID)
	st.AssertExpectations(t)
}

func TestCreateFromTemplate_InactiveIsNotFound(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	st.On("GetTemplate", mock.Anything, int64(2)).Return(&storage.Template{ID: 2, Mode: "lens"}, nil)

	_, err := s.CreateFromTemplate(context.Background(), "u1", 2, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateDesign_ParametersRecomputePreview(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	st.On("UpdateDesign", mock.Anything, int64(7), "u1", mock.MatchedBy(func(p storage.DesignPatch) bool {
		var data preview.Data
		if err := json.Unmarshal(p.PreviewData, &data); err != nil {
			return false
		}
		return p.Mode != nil && *p.Mode == "lens" &&
			p.Name == nil &&
			data.Summary.DOEMode == doe.ModeLens
	})).Return(nil)
	st.On("GetDesign", mock.Anything, int64(7), "u1").Return(spotDesign(), nil)

	_, err := s.UpdateDesign(context.Background(), "u1", 7, DesignUpdate{
		Parameters: doe.Raw{"mode": "lens"},
	})
	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestUpdateDesign_Validation(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	bad := "archived"
	_, err := s.UpdateDesign(context.Background(), "u1", 7, DesignUpdate{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.UpdateDesign(context.Background(), "u1", 7, DesignUpdate{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	st.AssertNotCalled(t, "UpdateDesign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateDesign_UnknownModeRejected(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	_, err := s.UpdateDesign(context.Background(), "u1", 7, DesignUpdate{
		Parameters: doe.Raw{"mode": "bogus", "wavelength": "532nm"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), `"bogus"`)

	st.AssertNotCalled(t, "UpdateDesign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshPreview_PersistsPreview(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	st.On("GetDesign", mock.Anything, int64(7), "u1").Return(spotDesign(), nil)
	st.On("UpdateDesign", mock.Anything, int64(7), "u1", mock.MatchedBy(func(p storage.DesignPatch) bool {
		return p.PreviewData != nil && p.Parameters != nil && p.OptimizationResult == nil
	})).Return(nil)

	res, err := s.RefreshPreview(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Preview.Summary.TotalSpots)
	st.AssertExpectations(t)
}

func TestStartOptimize_RunsTaskAndSavesResult(t *testing.T) {
	st := new(MockStorage)
	opt := new(MockOptimizer)
	run := new(MockRunner)
	s := newService(st, opt, run)

	st.On("GetDesign", mock.Anything, int64(7), "u1").Return(spotDesign(), nil)
	st.On("GetCredits", mock.Anything, "u1").Return(3, nil)
	opt.On("Optimize", mock.Anything, mock.AnythingOfType("doe.SpotProjector2D")).
		Return(&optimize.Result{PhaseMap: [][]int{{1}}}, nil)
	st.On("CompleteOptimization", mock.Anything, int64(7), "u1", mock.MatchedBy(func(r json.RawMessage) bool {
		var res optimize.Result
		return json.Unmarshal(r, &res) == nil && len(res.PhaseMap) == 1
	})).Return(nil)

	var taskErr error
	run.On("Start", int64(7), mock.Anything).
		Run(func(args mock.Arguments) {
			task := args.Get(1).(optimize.Task)
			taskErr = task(context.Background())
		}).
		Return(optimize.Job{ID: "job-1", DesignID: 7, State: optimize.StateQueued}, nil)

	job, err := s.StartOptimize(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.NoError(t, taskErr)

	st.AssertExpectations(t)
	opt.AssertExpectations(t)
}

func TestStartOptimize_NoCredits(t *testing.T) {
	st := new(MockStorage)
	run := new(MockRunner)
	s := newService(st, new(MockOptimizer), run)

	st.On("GetDesign", mock.Anything, int64(7), "u1").Return(spotDesign(), nil)
	st.On("GetCredits", mock.Anything, "u1").Return(0, nil)

	_, err := s.StartOptimize(context.Background(), "u1", 7)
	assert.ErrorIs(t, err, storage.ErrNoCredits)
	run.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
}

func TestStartOptimize_DesignNotFound(t *testing.T) {
	st := new(MockStorage)
	s := newService(st, new(MockOptimizer), new(MockRunner))

	st.On("GetDesign", mock.Anything, int64(7), "u2").Return(nil, storage.ErrNotFound)
	st.On("GetCredits", mock.Anything, "u2").Return(5, nil).Maybe()

	_, err := s.StartOptimize(context.Background(), "u2", 7)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStartOptimize_InFlight(t *testing.T) {
	st := new(MockStorage)
	run := new(MockRunner)
	s := newService(st, new(MockOptimizer), run)

	st.On("GetDesign", mock.Anything, int64(7), "u1").Return(spotDesign(), nil)
	st.On("GetCredits", mock.Anything, "u1").Return(1, nil)
	run.On("Start", int64(7), mock.Anything).
		Return(optimize.Job{ID: "running", State: optimize.StateRunning}, optimize.ErrInFlight)

	job, err := s.StartOptimize(context.Background(), "u1", 7)
	assert.ErrorIs(t, err, optimize.ErrInFlight)
	assert.Equal(t, "running", job.ID)
}

func TestOptimizeTask_FailureKeepsStoredResult(t *testing.T) {
	st := new(MockStorage)
	opt := new(MockOptimizer)
	s := newService(st, opt, new(MockRunner))

	boom := errors.New("diverged")
	opt.On("Optimize", mock.Anything, mock.Anything).Return(nil, boom)

	err := s.optimizeTask("u1", 7, doe.Prism{})(context.Background())
	assert.ErrorIs(t, err, boom)
	st.AssertNotCalled(t, "CompleteOptimization", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOptimizeStatus(t *testing.T) {
	st := new(MockStorage)
	run := new(MockRunner)
	s := newService(st, new(MockOptimizer), run)

	st.On("GetDesign", mock.Anything, int64(7), "u1").Return(spotDesign(), nil)
	st.On("GetDesign", mock.Anything, int64(8), "u1").Return(&storage.Design{ID: 8}, nil)
	run.On("Status", int64(7)).Return(optimize.Job{ID: "j", State: optimize.StateSucceeded}, true)
	run.On("Status", int64(8)).Return(optimize.Job{}, false)

	job, err := s.OptimizeStatus(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.Equal(t, optimize.StateSucceeded, job.State)

	_, err = s.OptimizeStatus(context.Background(), "u1", 8)
	assert.ErrorIs(t, err, ErrNoJob)
}
