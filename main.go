package main

import "github.com/KaramelBytes/leadpilot-cli/cmd"

func main() {
	cmd.Execute()
}
