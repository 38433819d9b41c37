package main

import "github.com/MeKo-Tech/histeq/internal/cmd"

func main() {
	cmd.Execute()
}
