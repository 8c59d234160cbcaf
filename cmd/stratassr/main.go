// Command stratassr runs the server-side rendering web service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dalemusser/stratassr/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		fmt.Fprintln(os.Stderr, "stratassr:", err)
		os.Exit(1)
	}
}
