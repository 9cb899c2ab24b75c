package main

import "flood-frequency/internal/cli"

func main() {
	cli.Execute()
}
