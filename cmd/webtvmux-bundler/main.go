package main

import (
	"github.com/joho/godotenv"

	"github.com/webtvmux/bundler/cmd/webtvmux-bundler/cmd"
)

func main() {
	// Local .env overrides let CI drive the environment switch from a file.
	_ = godotenv.Load()

	cmd.Execute()
}
