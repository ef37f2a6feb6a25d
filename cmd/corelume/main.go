// Command corelume runs the audio-analysis and MIDI-dispatch core as a
// standalone process: it owns no rendering surface of its own (spec §1,
// "on-screen lighting UI is out of scope for this core") but can optionally
// launch a read-only debug monitor.
package main

import (
	"log"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
