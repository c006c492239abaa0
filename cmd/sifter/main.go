package main

import (
	"github.com/vietddude/sifter/internal/cli"
)

func main() {
	cli.Execute()
}
