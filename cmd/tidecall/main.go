package main

import "github.com/driftline/tidecall/cmd/tidecall/cmd"

func main() {
	cmd.Execute()
}
