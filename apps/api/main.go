package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/mastersgang/backend/apps/api/echo"
	"github.com/mastersgang/backend/core"
	"github.com/mastersgang/backend/core/classroom"
	"github.com/mastersgang/backend/core/otp"
	"github.com/mastersgang/backend/core/user"
	emailsvc "github.com/mastersgang/backend/services/email"
	logsvc "github.com/mastersgang/backend/services/logger"
	"github.com/mastersgang/backend/storage/database"
)

const shutdownTimeout = 5 * time.Second

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db); err != nil {
		logger.Fatal("migrating database", err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf)
	}

	usrRepo := database.NewUserRepository(db)
	issuer := otp.NewIssuer(conf, database.NewCodeRepository(db), mailSvc)
	usrSvc := user.NewService(usrRepo, issuer)
	clsSvc := classroom.NewService(conf, database.NewClassroomRepository(db), usrRepo, mailSvc)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		ClassroomSvc:   clsSvc,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	// expired registration codes are purged in the background for as long
	// as the server runs
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go issuer.RunSweeper(sweepCtx, logger)

	go app.Start()
	logger.Info("server listening on " + conf.Addr())

	<-shutdown
	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}
