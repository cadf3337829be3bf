package main

import (
	"os"

	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/cmd"
	"github.com/firefly-engineering/firefly-forage/packages/forage-xrun/internal/errors"
)

func main() {
	code, err := cmd.Execute()
	if err != nil {
		os.Exit(errors.GetExitCode(err))
	}
	os.Exit(code)
}
