package main

import "ibot/internal/cli"

func main() {
	cli.Execute()
}
