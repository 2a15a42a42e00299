package main

import "github.com/feridsherif/crms-frontend/internal/cli"

func main() {
	cli.Execute()
}
