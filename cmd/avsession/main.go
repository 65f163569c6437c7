// Package main provides the avsession command-line client.
package main

func main() {
	Execute()
}
