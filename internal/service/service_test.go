package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/export"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"
	"github.com/brainysmurf/PowerSchoolIntegrator/internal/records"
)

const (
	testLayout        = "service_test_users"
	dynamicOnlyLayout = "service_test_cohorts_only"
)

func init() {
	layout.Register(layout.Layout{
		Info:    layout.Info{Key: dynamicOnlyLayout, Group: "Test", Label: "Cohorts only"},
		Headers: []string{"cohort_"},
	})
	layout.Register(layout.Layout{
		Info:        layout.Info{Key: testLayout, Group: "Test", Label: "Users"},
		Headers:     []string{"username", "course_", "cohort_"},
		Normalizers: map[string]layout.NormalizeFunc{"username": layout.Lower},
	})
}

const wantAdam = "username,course1,course2,cohort1,cohort2,cohort3\n" +
	"adam,math,art,,,howdy\n" +
	"adam,,bio,no,yes,effing"

func adamRecords() []records.Record {
	return []records.Record{
		{"username": export.Scalar("Adam"), "course_": export.Sequence{"math", "art"}, "cohort_": export.Sequence{"howdy"}},
		{"username": export.Scalar("adam"), "course": export.Sequence{"bio"}, "cohort_": export.Sequence{"no", "yes", "effing"}},
	}
}

func newTestService(t *testing.T, historySize int) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return New(Options{
		OutputDir:     dir,
		MaxConcurrent: 2,
		MaxWait:       50 * time.Millisecond,
		HistorySize:   historySize,
	}), dir
}

func TestExport_RendersText(t *testing.T) {
	svc, _ := newTestService(t, 10)

	res, err := svc.Export(context.Background(), Request{Layout: testLayout, Records: adamRecords()})
	require.NoError(t, err)

	assert.Equal(t, wantAdam, res.Text)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 6, res.Columns)
	assert.Equal(t, testLayout, res.Layout)
	assert.NotEmpty(t, res.ID)
	assert.Empty(t, res.Path)
	assert.False(t, res.CreatedAt.IsZero())
}

func TestExport_WritesUnderOutputDir(t *testing.T) {
	svc, dir := newTestService(t, 10)

	res, err := svc.Export(context.Background(), Request{
		Layout:  testLayout,
		Records: adamRecords(),
		Path:    filepath.Join("2026", "users.csv"),
	})
	require.NoError(t, err)

	want := filepath.Join(dir, "2026", "users.csv")
	assert.Equal(t, want, res.Path)

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, res.Text, string(data))
}

func TestExport_RejectsPathOutsideOutputDir(t *testing.T) {
	svc, dir := newTestService(t, 10)

	for _, p := range []string{"../escape.csv", "/tmp/escape.csv", "."} {
		res, err := svc.Export(context.Background(), Request{Layout: testLayout, Path: p})
		assert.ErrorIs(t, err, ErrInvalidPath, p)
		assert.Nil(t, res, p)
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestExport_PersistenceFailureKeepsText(t *testing.T) {
	svc, dir := newTestService(t, 10)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "taken"), 0o755))

	res, err := svc.Export(context.Background(), Request{
		Layout:  testLayout,
		Records: adamRecords(),
		Path:    "taken",
	})

	var perr *export.PersistenceError
	require.True(t, errors.As(err, &perr), "got %v", err)
	require.NotNil(t, res)
	assert.Contains(t, res.Text, "adam,math,art")
	assert.Empty(t, res.Path)
}

func TestExport_OutputDirectoryBlocked(t *testing.T) {
	svc, dir := newTestService(t, 10)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), []byte("x"), 0o644))

	res, err := svc.Export(context.Background(), Request{
		Layout:  testLayout,
		Records: adamRecords(),
		Path:    "file/sub/out.csv",
	})

	var perr *export.PersistenceError
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, filepath.Join(dir, "file", "sub", "out.csv"), perr.Path)
	assert.Equal(t, "OUT001", MapError(err).Code)

	require.NotNil(t, res)
	assert.Equal(t, wantAdam, res.Text)
	assert.Empty(t, res.Path)

	hist := svc.History(1)
	require.Len(t, hist, 1)
	assert.Equal(t, "OUT001", hist[0].Code)
}

func TestExport_EmptyRenderKeepsResultOnWriteFailure(t *testing.T) {
	svc, dir := newTestService(t, 10)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "taken"), 0o755))

	res, err := svc.Export(context.Background(), Request{
		Layout: dynamicOnlyLayout,
		Path:   "taken",
	})

	var perr *export.PersistenceError
	require.True(t, errors.As(err, &perr), "got %v", err)
	require.NotNil(t, res)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, 0, res.Columns)
}

func TestExport_Errors(t *testing.T) {
	svc, _ := newTestService(t, 10)
	ctx := context.Background()

	_, err := svc.Export(ctx, Request{Layout: "nope"})
	assert.ErrorIs(t, err, layout.ErrUnknownLayout)

	_, err = svc.Export(ctx, Request{Layout: testLayout, Records: []records.Record{
		{"username": export.Scalar("ok")},
		{"course_": export.Scalar("math")},
	}})
	var mismatch *export.KindMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, err.Error(), "record 2")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.Export(cancelled, Request{Layout: testLayout, Records: adamRecords()})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExport_Busy(t *testing.T) {
	svc := New(Options{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond, HistorySize: 5})
	require.True(t, svc.limiter.TryAcquire())
	defer svc.limiter.Release()

	_, err := svc.Export(context.Background(), Request{Layout: testLayout, Records: adamRecords()})
	assert.ErrorIs(t, err, ErrTooManyExports)
	assert.Equal(t, 1, svc.LimiterStatus().Active)
}

func TestHistory(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()

	first, err := svc.Export(ctx, Request{Layout: testLayout, Records: adamRecords()[:1]})
	require.NoError(t, err)
	second, err := svc.Export(ctx, Request{Layout: testLayout, Records: adamRecords()})
	require.NoError(t, err)
	_, err = svc.Export(ctx, Request{Layout: "nope"})
	require.Error(t, err)

	got := svc.History(0)
	require.Len(t, got, 2)
	assert.Equal(t, "nope", got[0].Layout)
	assert.Equal(t, "IN002", got[0].Code)
	assert.Equal(t, second.ID, got[1].ID)
	assert.Equal(t, 2, got[1].Rows)
	assert.Empty(t, got[1].Code)

	assert.Len(t, svc.History(1), 1)
	for _, e := range svc.History(0) {
		assert.NotEqual(t, first.ID, e.ID, "oldest entry should be evicted")
	}
}

func TestHistory_Disabled(t *testing.T) {
	svc, _ := newTestService(t, 0)

	_, err := svc.Export(context.Background(), Request{Layout: testLayout})
	require.NoError(t, err)
	assert.Empty(t, svc.History(0))
}

func TestWaitForExports(t *testing.T) {
	svc, _ := newTestService(t, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, svc.WaitForExports(ctx))
}

func TestPreview(t *testing.T) {
	svc, _ := newTestService(t, 10)

	grid, err := svc.Preview(context.Background(), testLayout, adamRecords())
	require.NoError(t, err)
	require.Len(t, grid, 3)
	assert.Equal(t, []string{"username", "course1", "course2", "cohort1", "cohort2", "cohort3"}, grid[0])
	assert.Equal(t, []string{"adam", "", "bio", "no", "yes", "effing"}, grid[2])
	assert.Empty(t, svc.History(0), "previews are not recorded")

	_, err = svc.Preview(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, layout.ErrUnknownLayout)
}

func TestResult_WriteTo(t *testing.T) {
	svc, _ := newTestService(t, 0)

	res, err := svc.Export(context.Background(), Request{Layout: testLayout, Records: adamRecords()})
	require.NoError(t, err)

	var sb strings.Builder
	n, err := res.WriteTo(&sb)
	require.NoError(t, err)
	assert.Equal(t, res.Text, sb.String())
	assert.Equal(t, int64(len(res.Text)), n)
}
