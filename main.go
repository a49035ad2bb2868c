package main

import "github.com/mpapenbr/livetiming-relay/cmd"

func main() {
	cmd.Execute()
}
