// Command odrlplan loads an ODRL-style policy document and registrations
// file, builds a planner, and renders the resulting evaluation plan.
package main

import "github.com/odrlplan/odrlplan/cmd/odrlplan/cmd"

func main() {
	cmd.Execute()
}
