package main

import (
	"os"

	"github.com/Redshadow31/tenf-v2-sub004/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := cli.NewRootCommand(nil, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
