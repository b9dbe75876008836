package main

import "github.com/surakshasphere/sentinel/cmd/sentinel-simulator/cmd"

func main() {
	cmd.Execute()
}
