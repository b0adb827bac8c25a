package main

import "github.com/zachetka/backend/storage/database"

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate() error {
	// only "up" is embedded; anything else goes through the goose CLI
	return migrateFunc(cli.db)
}
