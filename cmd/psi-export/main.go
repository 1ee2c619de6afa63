// Command psi-export renders Moodle bulk-upload CSV files from record
// files, PostgreSQL queries, or HTTP requests.
package main

import (
	"os"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
