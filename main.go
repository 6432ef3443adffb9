package main

import "github.com/Tiliavir/timescribe/cmd"

func main() {
	cmd.Execute()
}
