package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := Execute(); err != nil {
		log.Err(err).Msg("ruletree failed")
		os.Exit(1)
	}
}
