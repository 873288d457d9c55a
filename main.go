package main

import "github.com/flowviz/visdump/cmd"

func main() {
	cmd.Execute()
}
