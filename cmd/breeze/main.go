package main

import (
	"os"

	"github.com/naveenvino/breezepython/cmd/breeze/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
