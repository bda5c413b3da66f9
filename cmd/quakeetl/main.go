package main

import (
	"os"

	"github.com/couchcryptid/quake-catalog-etl/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
