package main

import "github.com/citycal/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
