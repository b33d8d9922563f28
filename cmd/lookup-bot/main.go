package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/gurujiofficial51-wq/info1/botservice"
)

func main() {
	if err := botservice.Run(); err != nil {
		log.Error().Err(err).Msg("lookup-bot exited with error")
		os.Exit(1)
	}
}
