package main

import "github.com/dwesselviax/EstateLogger/internal/cli"

func main() {
	cli.Execute()
}
