package main

import "github.com/akaushal/resinet/cmd"

func main() {
	cmd.Execute()
}
