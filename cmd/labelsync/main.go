package main

import "github.com/javi11/labelsync/cmd/labelsync/cmd"

func main() {
	cmd.Execute()
}
