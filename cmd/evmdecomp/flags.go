package main

import "flag"

// newCLIFlagSet creates a flag.FlagSet with ContinueOnError behavior, so
// a bad flag reports an error to parseFlags instead of calling os.Exit
// itself (flag.ExitOnError's default), which would make parseFlags
// untestable.
func newCLIFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}
