package main

import "github.com/jmcleod/authgate/cmd/authgate/cmd"

func main() {
	cmd.Execute()
}
