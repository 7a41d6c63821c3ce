package main

import (
	"github.com/tinylink/urlshortener/cmd"
	_ "github.com/tinylink/urlshortener/cmd/cli"
	_ "github.com/tinylink/urlshortener/cmd/server"
)

func main() {
	cmd.Execute()
}
