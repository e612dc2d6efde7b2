package main

import "github.com/yapay-ai/token-timeline/internal/cli"

func main() {
	cli.Execute()
}
