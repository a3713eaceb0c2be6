package main

import "recicleai/internal/cli"

func main() {
	cli.Execute()
}
