package main

import "github.com/creativeprojects/mailmock/cmd"

// filled in by the release build
var (
	version = ""
	commit  = ""
	date    = ""
	builtBy = ""
)

func main() {
	cmd.Execute(version, commit, date, builtBy)
}
