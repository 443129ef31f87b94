package main

import "github.com/brocaar/chirpstack-radio-planner/cmd/chirpstack-radio-planner/cmd"

var version string // set by the compiler

func main() {
	cmd.Execute(version)
}
