// Package export builds the comma-delimited bulk-import files consumed by
// Moodle's "upload users" tool.
//
// The upload format has one awkward property: some logical fields are
// repeated groups (course1, course2, ...), yet every line in the file must
// carry the same number of columns. This package tracks, per repeated
// field, the largest number of entries any row has supplied and expands
// the header and every row to that width.
//
// # Fields
//
// Headers are declared once, in output order. A name ending in
// [DynamicMarker] declares a Dynamic (repeated) field; the marker is
// stripped and the expanded columns are numbered from 1:
//
//	t := export.NewTable()
//	t.RegisterHeaders([]string{"username", "course_", "cohort_"})
//
// # Rows
//
// Rows come from the table's factory, are filled with [Row.Set], then
// handed back with [Table.Submit]:
//
//	row := t.NewRow()
//	row.Set("username", export.Scalar("adam"))
//	row.Set("course_", export.Sequence{"math", "art"})
//	t.Submit(row)
//
// Setting a Dynamic field twice appends; setting a Static field twice
// replaces.
//
// # Rendering
//
// [Table.Render] is a pure read of the accumulated state. Short Dynamic
// sequences are left-padded with empty cells so the real values sit at the
// right edge of the field's column block:
//
//	username,course1,course2,cohort1,cohort2,cohort3
//	Adam,math,art,,,howdy
//	Adam,,bio,no,yes,effing
//
// Values are written verbatim. A value containing a comma or a newline
// produces a malformed file; Moodle's format has no quoting.
package export
