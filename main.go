package main

import "github.com/ellavondegurechaff/kinobot/cmd"

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.Execute()
}
