package main

import (
	"os"

	"github.com/toolvault/toolvault/internal/tools/admin"
)

func main() {
	if err := admin.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
