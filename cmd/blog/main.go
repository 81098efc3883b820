package main

import (
	"log"

	"github.com/0xORB/blog-website/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
