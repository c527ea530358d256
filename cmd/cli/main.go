package main

import (
	"github.com/conversationai/goldeval/pkg/cli"
)

func main() {
	cli.Execute()
}
