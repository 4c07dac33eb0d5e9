// Package main is the touchctl command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/ads7846/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
