package main

import "github.com/surakshasphere/sentinel/cmd/sentinel-allclear/cmd"

func main() {
	cmd.Execute()
}
