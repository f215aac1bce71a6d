package main

import "github.com/keshon/discord-plugins/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
