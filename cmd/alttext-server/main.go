// @title Alt text server API
// @version 1.0
// @description Image captioning, alt text, SEO and analysis endpoints
// @host localhost:5000
// @BasePath /
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"alttext-server-go/internal/bootstrap"
)

func main() {
	fmt.Printf("[%s] [INFO] [Bootstrap] starting alttext-server...\n", time.Now().Format("2006-01-02 15:04:05.000"))
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "alttext-server failed: %v\n", err)
		os.Exit(1)
	}
}
