package main

import "pacrepack/internal/cli"

func main() {
	cli.Execute()
}
