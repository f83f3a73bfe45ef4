package main

import (
	"fmt"
	"os"

	"github.com/MarkUsProject/markusmoss/internal/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// Optional: secrets such as MARKUSMOSS_MARKUS_API_KEY may live in a
	// local .env instead of the rc file.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "markusmoss: %v\n", err)
		os.Exit(1)
	}
}
