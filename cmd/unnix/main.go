// Command unnix resolves packages declared in unnix.kdl against a
// build farm, pins them in unnix.lock.json, fetches their closure
// from binary caches into a local store, and launches an isolated
// shell with those outputs available.
package main

import "github.com/unnix/unnix/internal/cli"

func main() {
	cli.Execute()
}
