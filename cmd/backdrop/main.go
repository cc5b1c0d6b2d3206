package main

import "github.com/soundbed/backdrop/internal/cli"

func main() {
	cli.Execute()
}
