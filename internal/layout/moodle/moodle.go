// Package moodle registers the built-in Moodle "upload users" layouts.
// Import it for side effects:
//
//	import _ "github.com/brainysmurf/PowerSchoolIntegrator/internal/layout/moodle"
//
// Moodle numbers the enrolment columns of an upload file (course1, role1,
// group1, ...) and pairs them by number, so these layouts declare them as
// repeated groups.
// See https://docs.moodle.org/23/en/Upload_users#File_formats_for_upload_users_file
package moodle

import "github.com/brainysmurf/PowerSchoolIntegrator/internal/layout"

// Group is the layout group for everything in this package.
const Group = "Moodle"

const (
	UsersKey  = "moodle_users"
	EnrolKey  = "moodle_enrol"
	CohortKey = "moodle_cohorts"
)

var accountNormalizers = map[string]layout.NormalizeFunc{
	"username": layout.Lower,
	"email":    layout.Lower,
	"idnumber": layout.Trim,
	"auth":     layout.Lower,
}

func init() {
	layout.Register(layout.Layout{
		Info: layout.Info{Key: UsersKey, Group: Group, Label: "Upload users"},
		Headers: []string{
			"username", "password", "firstname", "lastname", "email",
			"auth", "idnumber", "institution", "department", "city", "country",
			"course_", "type_", "role_", "group_", "enrolperiod_", "cohort_",
		},
		Normalizers: accountNormalizers,
	})

	layout.Register(layout.Layout{
		Info:    layout.Info{Key: EnrolKey, Group: Group, Label: "Enrolments only"},
		Headers: []string{"username", "course_", "role_", "group_"},
		Normalizers: map[string]layout.NormalizeFunc{
			"username": layout.Lower,
		},
	})

	layout.Register(layout.Layout{
		Info:    layout.Info{Key: CohortKey, Group: Group, Label: "Cohort membership"},
		Headers: []string{"username", "email", "cohort_"},
		Normalizers: map[string]layout.NormalizeFunc{
			"username": layout.Lower,
			"email":    layout.Lower,
		},
	})
}
