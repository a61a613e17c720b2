// Package main is the ppgen command itself.
package main

import (
	"context"
	"log"
	"os"

	"github.com/ppgo/pathplanner/cli"
)

func main() {
	app := cli.NewApp(os.Stdout)
	app.ErrWriter = os.Stderr
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
