package main

import (
	"audiopub/cmd"
)

func main() {
	cmd.Execute()
}
