package main

import "github.com/surakshasphere/sentinel/cmd/sentinel-watchdog/cmd"

func main() {
	cmd.Execute()
}
