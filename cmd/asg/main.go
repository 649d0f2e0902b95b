package main

import "github.com/ogulcanaydogan/ad-spend-guardian/internal/cli"

func main() {
	cli.Execute()
}
