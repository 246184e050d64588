// Command chesscheck is a command-line client for a running arbiter.
// "chesscheck smoke" plays a scripted game and exits non-zero on the first
// unexpected reply.
package main

import "github.com/park285/chess-arbiter/internal/cli"

func main() { cli.Execute() }
