// Package env loads an optional .env file into the process environment
// before config.LoadMeta/LoadStorageNode/LoadClient bind Viper against
// it, so local runs don't require exporting every META_*/STORAGE_*
// variable by hand.
package env

import (
	"log"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env from the working directory if present. A missing
// file is not an error: the process environment and config defaults
// still apply.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment")
	}
}

