package main

import (
	"log"
	"os"

	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/otp"
	"github.com/mastersgang/backend/core/user"
	emailsvc "github.com/mastersgang/backend/services/email"
	"github.com/mastersgang/backend/storage/database"
)

func main() {
	conf := core.NewConfig()

	if err := database.CreateIfNotExist(conf); err != nil {
		log.Fatalf("setting up database: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db); err != nil {
		log.Fatalf("migrating database: %v", err)
	}

	usrRepo := database.NewUserRepository(db)
	issuer := otp.NewIssuer(conf, database.NewCodeRepository(db), emailsvc.NewConsoleService(conf))

	cli := &commandLine{
		usrRepo: usrRepo,
		usrSvc:  user.NewService(usrRepo, issuer),
	}
	if err := cli.run(os.Args); err != nil {
		if err == errHelp {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}
