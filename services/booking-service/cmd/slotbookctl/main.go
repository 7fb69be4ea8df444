// Command slotbookctl previews schedules offline: it expands recurrence rules and
// computes the free slots of a day from a catalog file, without a database.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

var CLI struct {
	Version kong.VersionFlag

	Expand  ExpandCmd  `cmd:"" help:"Expand a recurring block into its occurrences."`
	Slots   SlotsCmd   `cmd:"" help:"List the bookable slots of a day."`
	Catalog CatalogCmd `cmd:"" help:"Validate a catalog file."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("slotbookctl"),
		kong.Description("Offline schedule previews for slotbook"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)
	if err := ctx.Run(&Context{Out: os.Stdout}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
