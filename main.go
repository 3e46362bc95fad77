package main

import "photo-rater/internal/cli"

func main() {
	cli.Execute()
}
