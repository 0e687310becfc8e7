package main

import "eam/internal/cmd"

func main() {
	cmd.Execute()
}
