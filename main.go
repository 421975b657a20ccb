package main

import "github.com/Mohsinsiddi/w3burn/cmd"

func main() {
	cmd.Execute()
}
