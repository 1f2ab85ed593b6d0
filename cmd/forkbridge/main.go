package main

import "github.com/example/forkbridge/cmd"

func main() {
	cmd.Execute()
}
