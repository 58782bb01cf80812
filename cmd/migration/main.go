package main

import (
	"context"
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"gitlab.com/dirk.krummacker/address-book/internal/config"
	"gitlab.com/dirk.krummacker/address-book/internal/logging"
	"gitlab.com/dirk.krummacker/address-book/internal/migrations"
	"gitlab.com/dirk.krummacker/address-book/internal/store"
)

// Usage example on the command line:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go run main.go -command=up
func main() {
	commandPtr := flag.String("command", "up", "the migration command: up, down or status")
	flag.Parse()

	cfg, err := config.Load(".env")
	if err != nil {
		logrus.WithError(err).Fatal("could not load configuration")
	}
	log, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("could not create logger")
	}

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DSN(), store.PoolOptions{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		log.WithError(err).Fatal("could not connect to the database")
	}
	defer db.Close()

	migrator, err := migrations.New(db.DB, cfg.DBDriver, log)
	if err != nil {
		log.WithError(err).Fatal("could not set up migrations")
	}

	switch *commandPtr {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "status":
		err = migrator.Status(ctx)
	default:
		log.Fatalf("unknown command %q", *commandPtr)
	}
	if err != nil {
		log.WithError(err).Fatal("migration failed")
	}
}
