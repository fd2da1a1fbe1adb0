package main

import "github.com/kamal-hamza/hx-cli/cmd"

func main() {
	cmd.Execute()
}
