package export

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenarioTable(t *testing.T) *Table {
	t.Helper()

	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username", "course_", "cohort_"}))

	a := tbl.NewRow()
	require.NoError(t, a.Set("username", Scalar("Adam")))
	require.NoError(t, a.Set("course_", Sequence{"math", "art"}))
	require.NoError(t, a.Set("cohort_", Sequence{"howdy"}))
	require.NoError(t, tbl.Submit(a))

	b := tbl.NewRow()
	require.NoError(t, b.Set("username", Scalar("Adam")))
	require.NoError(t, b.Set("course_", Sequence{"bio"}))
	require.NoError(t, b.Set("cohort_", Sequence{"no", "yes", "effing"}))
	require.NoError(t, tbl.Submit(b))

	return tbl
}

func TestRender_Scenario(t *testing.T) {
	tbl := newScenarioTable(t)

	want := strings.Join([]string{
		"username,course1,course2,cohort1,cohort2,cohort3",
		"Adam,math,art,,,howdy",
		"Adam,,bio,no,yes,effing",
	}, "\n")

	assert.Equal(t, want, tbl.Render())
	assert.Equal(t, 6, tbl.Columns())
	assert.Equal(t, 2, tbl.Len())
}

func TestRender_Rectangular(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username", "password", "course_", "group_", "cohort_"}))

	inputs := []map[string]Value{
		{"username": Scalar("a"), "course_": Sequence{"c1"}},
		{"username": Scalar("b"), "course_": Sequence{"c1", "c2", "c3"}, "group_": Sequence{"g"}},
		{"username": Scalar("c"), "password": Scalar("pw")},
		{"username": Scalar("d"), "group_": Sequence{"g1", "g2"}, "cohort_": Sequence{}},
	}
	for _, in := range inputs {
		row := tbl.NewRow()
		for name, v := range in {
			require.NoError(t, row.Set(name, v))
		}
		require.NoError(t, tbl.Submit(row))
	}

	lines := strings.Split(tbl.Render(), "\n")
	require.Len(t, lines, len(inputs)+1)

	want := 2 + 3 + 2
	for i, line := range lines {
		assert.Equal(t, want, len(strings.Split(line, Delimiter)), "line %d: %q", i, line)
	}
}

func TestRender_RightAligned(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"course_"}))

	wide := tbl.NewRow()
	require.NoError(t, wide.Set("course_", Sequence{"a", "b", "c"}))
	require.NoError(t, tbl.Submit(wide))

	short := tbl.NewRow()
	require.NoError(t, short.Set("course_", Sequence{"x"}))
	require.NoError(t, tbl.Submit(short))

	lines := strings.Split(tbl.Render(), "\n")
	assert.Equal(t, "course1,course2,course3", lines[0])
	assert.Equal(t, ",,x", lines[2])
}

func TestRender_ZeroOccurrenceDynamicField(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username", "role_", "email"}))

	row := tbl.NewRow()
	require.NoError(t, row.Set("username", Scalar("joe")))
	require.NoError(t, row.Set("email", Scalar("joe@example.com")))
	require.NoError(t, tbl.Submit(row))

	assert.Equal(t, "username,email\njoe,joe@example.com", tbl.Render())
}

func TestRender_NoRows(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username", "course_"}))

	assert.Equal(t, "username", tbl.Render())
}

func TestRender_UnsetStaticIsEmpty(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username", "password"}))

	row := tbl.NewRow()
	require.NoError(t, row.Set("username", Scalar("joe")))
	require.NoError(t, tbl.Submit(row))

	assert.Equal(t, "username,password\njoe,", tbl.Render())
}

func TestRender_Idempotent(t *testing.T) {
	tbl := newScenarioTable(t)

	first := tbl.Render()
	second := tbl.Render()
	assert.Equal(t, first, second)

	got, err := tbl.ObservedMax("cohort_")
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}

func TestSubmit_MonotonicMaxima(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"course_"}))

	lengths := []int{2, 5, 1, 0, 3}
	wantMax := []int{2, 5, 5, 5, 5}

	for i, n := range lengths {
		row := tbl.NewRow()
		seq := make(Sequence, n)
		for j := range seq {
			seq[j] = "c"
		}
		require.NoError(t, row.Set("course_", seq))
		require.NoError(t, tbl.Submit(row))

		got, err := tbl.ObservedMax("course")
		require.NoError(t, err)
		assert.Equal(t, wantMax[i], got, "after row %d", i)
	}
}

func TestSubmit_Rejections(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username"}))

	row := tbl.NewRow()
	require.NoError(t, tbl.Submit(row))
	assert.ErrorIs(t, tbl.Submit(row), ErrRowSubmitted)
	assert.ErrorIs(t, row.Set("username", Scalar("late")), ErrRowSubmitted)

	other := NewTable()
	require.NoError(t, other.RegisterHeaders([]string{"username"}))
	assert.ErrorIs(t, tbl.Submit(other.NewRow()), ErrForeignRow)
	assert.ErrorIs(t, tbl.Submit(nil), ErrForeignRow)

	assert.Equal(t, 1, tbl.Len())
}

func TestRegisterHeaders_FrozenAfterNewRow(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username"}))
	require.NoError(t, tbl.RegisterHeaders([]string{"course_"}))

	tbl.NewRow()

	err := tbl.RegisterHeaders([]string{"email"})
	var frozen *SchemaFrozenError
	require.True(t, errors.As(err, &frozen), "got %v", err)
	assert.Equal(t, 1, frozen.Rows)
	assert.Equal(t, 2, tbl.Schema().Len())
}

func TestObservedMax_Unknown(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username"}))

	_, err := tbl.ObservedMax("nope")
	var unknown *UnknownFieldError
	assert.True(t, errors.As(err, &unknown))

	got, err := tbl.ObservedMax("username")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestRecords(t *testing.T) {
	tbl := newScenarioTable(t)

	want := [][]string{
		{"username", "course1", "course2", "cohort1", "cohort2", "cohort3"},
		{"Adam", "math", "art", "", "", "howdy"},
		{"Adam", "", "bio", "no", "yes", "effing"},
	}
	assert.Equal(t, want, tbl.Records())
	assert.Equal(t, want[0], tbl.Header())
}

func TestWriteTo(t *testing.T) {
	tbl := newScenarioTable(t)

	var b strings.Builder
	n, err := tbl.WriteTo(&b)
	require.NoError(t, err)
	assert.Equal(t, int64(len(tbl.Render())), n)
	assert.Equal(t, tbl.Render(), b.String())
}

func TestTable_ConcurrentSubmitAndRender(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders([]string{"username", "course_"}))

	rows := make([]*Row, 50)
	for i := range rows {
		rows[i] = tbl.NewRow()
		require.NoError(t, rows[i].Set("course_", make(Sequence, i%7)))
	}

	var wg sync.WaitGroup
	for _, row := range rows {
		wg.Add(2)
		go func(r *Row) {
			defer wg.Done()
			assert.NoError(t, tbl.Submit(r))
		}(row)
		go func() {
			defer wg.Done()
			tbl.Render()
		}()
	}
	wg.Wait()

	got, err := tbl.ObservedMax("course_")
	require.NoError(t, err)
	assert.Equal(t, 6, got)
	assert.Equal(t, 50, tbl.Len())
}
