package main

import (
	"context"
	"os"

	"github.com/sardine-ai/dmx-artnet-checker/cmd"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
