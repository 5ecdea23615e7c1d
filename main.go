package main

import (
	"VoidFM/cmd"
	"log"
)

func main() {
	cmd.Execute()
	// Cobra exits on command errors; reaching this line means the command returned normally.
	log.Println("VoidFM command finished.")
}
