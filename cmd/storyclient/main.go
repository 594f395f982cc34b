package main

import "github.com/patric-chuzhbe/hackorsnooze/internal/cli"

func main() {
	cli.Execute()
}
