package main

import "github.com/example/pickup-scheduler/cmd"

func main() {
	cmd.Execute()
}
