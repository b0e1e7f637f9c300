package main

import "github.com/Elantris/commander/cmd"

func main() {
	cmd.Execute()
}
