package main

import "github.com/relloyd/cdsync/cmd"

func main() {
	cmd.Execute()
}
