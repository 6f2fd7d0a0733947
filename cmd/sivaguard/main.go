// Package main provides the sivaguard CLI.
//
// Usage:
//
//	sivaguard verify x=@jane_doe github=https://github.com/janedoe
//	sivaguard evaluate per_identity.json
//	sivaguard serve --addr :8080
//
// See --help for all available options.
package main

func main() {
	Execute()
}
