package main

import "github.com/oshokin/fw-merge/cmd/fw-merge/cmd"

func main() {
	cmd.Execute()
}
