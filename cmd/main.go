package main

import (
	"os"

	"github.com/jkor2/lifeof/config"
	"github.com/jkor2/lifeof/routes"
	"github.com/jkor2/lifeof/utils"

	"github.com/rs/zerolog"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	config.InitDB()
	utils.InitS3() // no-op unless S3_BUCKET is configured

	r := routes.SetupRouter(log)

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
