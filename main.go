package main

import "github.com/gadget-bot/amedos/cmd"

func main() {
	cmd.Execute()
}
