package main

import (
	"os"

	"github.com/kevinbrodzinski/comesocial-sub003/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
