package main

import "github.com/radif/imagegw/cmd/imagectl/cmd"

func main() {
	cmd.Execute()
}
