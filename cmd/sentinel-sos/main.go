package main

import "github.com/surakshasphere/sentinel/cmd/sentinel-sos/cmd"

func main() {
	cmd.Execute()
}
