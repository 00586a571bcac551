package main

import (
	"log"

	"github.com/tech-arch1tect/seminary"
)

func main() {
	app, err := seminary.New()
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
