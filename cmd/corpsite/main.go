package main

import (
	"context"
	"os"

	"github.com/dalemusser/corpsite/app"
	"github.com/dalemusser/corpsite/internal/app/bootstrap"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		os.Exit(1)
	}
}
