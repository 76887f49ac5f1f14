// Command pdkrun loads a plugin from its manifest and calls one of its
// exported functions.
package main

func main() {
	Execute()
}
