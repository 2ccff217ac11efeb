package main

import "github.com/hmalhotra-labs/mindloop-audio/cmd"

func main() {
	cmd.Execute()
}
