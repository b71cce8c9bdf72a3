package main

import "github.com/mcoot/keyquest/internal/cli"

func main() {
	cli.Execute()
}
