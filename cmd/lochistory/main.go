package main

import "github.com/MeKo-Tech/lochistory/internal/cmd"

func main() {
	cmd.Execute()
}
