/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "chanfinder/cmd"

func main() {
	cmd.Execute()
}
