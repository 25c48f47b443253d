// Command vmsim simulates the virtual memory management of an operating
// system on a trace of context switches, exits, reads and writes.
package main

import "github.com/sarchlab/vmsim/vmsim/cmd"

func main() {
	cmd.Execute()
}
