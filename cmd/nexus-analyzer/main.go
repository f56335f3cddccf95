// Command nexus-analyzer runs the module dependency and quality analyzer on a Redis message bus.
package main

func main() {
	Execute()
}
