package main

import "github.com/campus-events/apiserver/cmd"

func main() {
	cmd.Execute()
}
