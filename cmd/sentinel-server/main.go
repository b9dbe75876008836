package main

import "github.com/surakshasphere/sentinel/cmd/sentinel-server/cmd"

func main() {
	cmd.Execute()
}
