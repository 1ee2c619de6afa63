package export

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		declared string
		want     Field
	}{
		{"username", Field{Name: "username", Declared: "username", Kind: Static}},
		{"course_", Field{Name: "course", Declared: "course_", Kind: Dynamic}},
		{"profile_field_blah", Field{Name: "profile_field_blah", Declared: "profile_field_blah", Kind: Static}},
		{"profile_field_", Field{Name: "profile_field", Declared: "profile_field_", Kind: Dynamic}},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseField(tt.declared))
		})
	}
}

func TestRegister_PreservesOrder(t *testing.T) {
	s := NewHeaderSchema()
	require.NoError(t, s.Register([]string{"username", "course_", "cohort_", "email"}))

	var names []string
	var kinds []FieldKind
	for _, f := range s.Fields() {
		names = append(names, f.Name)
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []string{"username", "course", "cohort", "email"}, names)
	assert.Equal(t, []FieldKind{Static, Dynamic, Dynamic, Static}, kinds)
}

func TestRegister_Duplicates(t *testing.T) {
	tests := []struct {
		name  string
		first []string
		then  []string
	}{
		{"same batch", nil, []string{"username", "username"}},
		{"later batch", []string{"username"}, []string{"username"}},
		{"static and dynamic clash", []string{"course"}, []string{"course_"}},
		{"dynamic twice", nil, []string{"course_", "course_"}},
		{"stripped name equals declared name", nil, []string{"x_", "x__"}},
		{"declared name shadowed in later batch", []string{"x_"}, []string{"x__"}},
		{"declared name reused as stripped name", []string{"x__"}, []string{"x_"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewHeaderSchema()
			require.NoError(t, s.Register(tt.first))
			before := s.Len()

			err := s.Register(tt.then)
			var dup *DuplicateHeaderError
			require.True(t, errors.As(err, &dup), "got %v", err)
			assert.Equal(t, before, s.Len(), "failed batch must not be stored")
		})
	}
}

func TestLookup_NamesStayDistinct(t *testing.T) {
	s := NewHeaderSchema()
	require.NoError(t, s.Register([]string{"x_"}))
	require.Error(t, s.Register([]string{"x__"}))

	f, ok := s.Lookup("x_")
	require.True(t, ok)
	assert.Equal(t, "x", f.Name)
	assert.Equal(t, 1, s.Len())
}

func TestRegister_EmptyName(t *testing.T) {
	s := NewHeaderSchema()
	assert.ErrorIs(t, s.Register([]string{"_"}), ErrEmptyHeader)
	assert.ErrorIs(t, s.Register([]string{""}), ErrEmptyHeader)
	assert.Equal(t, 0, s.Len())
}

func TestLookup(t *testing.T) {
	s := NewHeaderSchema()
	require.NoError(t, s.Register([]string{"username", "course_"}))

	f, ok := s.Lookup("course_")
	require.True(t, ok)
	assert.Equal(t, Dynamic, f.Kind)

	f, ok = s.Lookup("course")
	require.True(t, ok)
	assert.Equal(t, "course_", f.Declared)

	_, ok = s.Lookup("username_")
	assert.False(t, ok)
}

func TestFieldKindString(t *testing.T) {
	assert.Equal(t, "static", Static.String())
	assert.Equal(t, "dynamic", Dynamic.String())
	assert.Equal(t, "unknown", FieldKind(9).String())
}
