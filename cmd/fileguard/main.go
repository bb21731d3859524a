package main

import "go-file-guard/internal/cli"

func main() {
	cli.Execute()
}
