package main

import "github.com/uitap-dev/uitap/pkg/cli"

func main() {
	cli.Execute()
}
