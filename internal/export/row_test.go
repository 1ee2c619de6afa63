package export

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRow(t *testing.T, headers ...string) *Row {
	t.Helper()
	tbl := NewTable()
	require.NoError(t, tbl.RegisterHeaders(headers))
	return tbl.NewRow()
}

func TestNewRow_Defaults(t *testing.T) {
	row := newTestRow(t, "username", "course_")

	v, err := row.Get("username")
	require.NoError(t, err)
	assert.Equal(t, Scalar(""), v)

	v, err = row.Get("course_")
	require.NoError(t, err)
	assert.Equal(t, Sequence{}, v)
}

func TestRowSet(t *testing.T) {
	tests := []struct {
		name  string
		sets  []Value
		field string
		want  Value
	}{
		{
			name:  "static replaces",
			field: "username",
			sets:  []Value{Scalar("first"), Scalar("second")},
			want:  Scalar("second"),
		},
		{
			name:  "dynamic appends",
			field: "course_",
			sets:  []Value{Sequence{"loves and misses"}, Sequence{"bun", "ny"}},
			want:  Sequence{"loves and misses", "bun", "ny"},
		},
		{
			name:  "dynamic by stripped name",
			field: "course",
			sets:  []Value{Sequence{"a"}, Sequence{"b"}},
			want:  Sequence{"a", "b"},
		},
		{
			name:  "empty sequence is allowed",
			field: "course_",
			sets:  []Value{Sequence{}},
			want:  Sequence{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := newTestRow(t, "username", "course_")
			for _, v := range tt.sets {
				require.NoError(t, row.Set(tt.field, v))
			}
			got, err := row.Get(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowSet_KindMismatch(t *testing.T) {
	row := newTestRow(t, "username", "course_")
	require.NoError(t, row.Set("username", Scalar("joe")))
	require.NoError(t, row.Set("course_", Sequence{"math"}))

	err := row.Set("username", Sequence{"a", "b"})
	var mismatch *KindMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, Static, mismatch.Kind)
	assert.Contains(t, err.Error(), "static field")

	err = row.Set("course_", Scalar("art"))
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, Dynamic, mismatch.Kind)
	assert.Contains(t, err.Error(), "dynamic field")

	v, _ := row.Get("username")
	assert.Equal(t, Scalar("joe"), v)
	v, _ = row.Get("course_")
	assert.Equal(t, Sequence{"math"}, v)
}

func TestRowSet_UnknownField(t *testing.T) {
	row := newTestRow(t, "username")

	err := row.Set("password", Scalar("x"))
	var unknown *UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "password", unknown.Name)

	_, err = row.Get("password")
	assert.True(t, errors.As(err, &unknown))
}

func TestRowSet_NilValue(t *testing.T) {
	row := newTestRow(t, "username")
	assert.Error(t, row.Set("username", nil))
}

func TestRowSet_DoesNotAliasCallerSlice(t *testing.T) {
	row := newTestRow(t, "course_")

	in := Sequence{"a", "b"}
	require.NoError(t, row.Set("course_", in))
	in[0] = "changed"

	got, _ := row.Get("course_")
	assert.Equal(t, Sequence{"a", "b"}, got)

	got.(Sequence)[1] = "changed"
	again, _ := row.Get("course_")
	assert.Equal(t, Sequence{"a", "b"}, again)
}
