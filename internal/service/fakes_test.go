package service

import (
	"context"
	"coursehub_backend/internal/model"
	"coursehub_backend/internal/util"
	"errors"
	"sync"
)

type fakeProfiles struct {
	byUser map[string]string
	err    error
}

func (f *fakeProfiles) GetProfileID(ctx context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id, ok := f.byUser[userID]
	if !ok {
		return "", util.ErrProfileNotFound
	}
	return id, nil
}

type progressKey struct{ profile, step string }

// fakeProgressStore 内存版 ProgressStore，步骤归属来自 fakeCatalog
type fakeProgressStore struct {
	mu       sync.Mutex
	catalog  *fakeCatalog
	records  map[progressKey]*model.UserProgress
	writes   int
	writeErr error
	listErr  error
	details  []model.ProgressDetail
}

func newFakeProgressStore(catalog *fakeCatalog) *fakeProgressStore {
	return &fakeProgressStore{catalog: catalog, records: make(map[progressKey]*model.UserProgress)}
}

func (f *fakeProgressStore) Find(ctx context.Context, profileID, stepID string) (*model.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[progressKey{profileID, stepID}]; ok {
		copied := *rec
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeProgressStore) UpsertCompletion(ctx context.Context, profileID, stepID string) (*model.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return nil, util.NewStoreError("upsert completion", f.writeErr)
	}
	key := progressKey{profileID, stepID}
	if rec, ok := f.records[key]; ok {
		return rec, nil
	}
	rec := &model.UserProgress{UserID: profileID, StepID: stepID, Completed: true}
	f.records[key] = rec
	return rec, nil
}

func (f *fakeProgressStore) completed(profileID string, match func(step *model.Step) bool) map[string]struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := make(map[string]struct{})
	for key, rec := range f.records {
		if key.profile != profileID || !rec.Completed {
			continue
		}
		if step, ok := f.catalog.steps[key.step]; ok && match(step) {
			set[key.step] = struct{}{}
		}
	}
	return set
}

func (f *fakeProgressStore) ListCompletedForUser(ctx context.Context, profileID, moduleID string) (map[string]struct{}, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.completed(profileID, func(step *model.Step) bool { return step.ModuleID == moduleID }), nil
}

func (f *fakeProgressStore) ListCompletedForUserInCourse(ctx context.Context, profileID, courseID string) (map[string]struct{}, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.completed(profileID, func(step *model.Step) bool {
		return f.catalog.moduleCourse[step.ModuleID] == courseID
	}), nil
}

func (f *fakeProgressStore) ListProgressForUser(ctx context.Context, profileID string) ([]model.ProgressDetail, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.details, nil
}

func (f *fakeProgressStore) ListProgressForUserAndCourse(ctx context.Context, profileID, courseID string) ([]model.ProgressDetail, error) {
	var out []model.ProgressDetail
	for _, d := range f.details {
		if d.CourseID == courseID {
			out = append(out, d)
		}
	}
	return out, f.listErr
}

type fakeCatalog struct {
	steps        map[string]*model.Step
	moduleCourse map[string]string
	modules      []model.Module
	countErr     error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		steps:        make(map[string]*model.Step),
		moduleCourse: make(map[string]string),
	}
}

func (f *fakeCatalog) addModule(courseID, moduleID string, order int, stepIDs ...string) {
	f.moduleCourse[moduleID] = courseID
	module := model.Module{CourseID: courseID, Title: moduleID, OrderIndex: order}
	module.ID = moduleID
	for i, id := range stepIDs {
		step := model.Step{ModuleID: moduleID, Title: id, OrderIndex: i}
		step.ID = id
		f.steps[id] = &step
		module.Steps = append(module.Steps, step)
	}
	f.modules = append(f.modules, module)
}

func (f *fakeCatalog) FindStep(ctx context.Context, stepID string) (*model.Step, error) {
	step, ok := f.steps[stepID]
	if !ok {
		return nil, util.ErrStepNotFound
	}
	return step, nil
}

func (f *fakeCatalog) FindModule(ctx context.Context, moduleID string) (*model.Module, error) {
	courseID, ok := f.moduleCourse[moduleID]
	if !ok {
		return nil, util.ErrModuleNotFound
	}
	module := model.Module{CourseID: courseID}
	module.ID = moduleID
	return &module, nil
}

func (f *fakeCatalog) CountStepsInModule(ctx context.Context, moduleID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, step := range f.steps {
		if step.ModuleID == moduleID {
			n++
		}
	}
	return n, nil
}

func (f *fakeCatalog) CountStepsInCourse(ctx context.Context, courseID string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, step := range f.steps {
		if f.moduleCourse[step.ModuleID] == courseID {
			n++
		}
	}
	return n, nil
}

func (f *fakeCatalog) ListOutline(ctx context.Context, courseID string) ([]model.Module, error) {
	var out []model.Module
	for _, m := range f.modules {
		if m.CourseID == courseID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeDispatcher struct {
	mu     sync.Mutex
	events []CourseCompletionEvent
	err    error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event CourseCompletionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

var errBackend = errors.New("backend unavailable")
