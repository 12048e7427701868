package main

import (
	"os"

	"github.com/dl-alexandre/drivesync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
