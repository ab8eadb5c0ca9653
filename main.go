package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cafe-ordering/config"
	"cafe-ordering/services"
	"cafe-ordering/session"
	"cafe-ordering/terminal"

	"github.com/sirupsen/logrus"
)

const usage = `Usage: cafe [-driver postgres|sqlite] [-host HOST] <database-name> <port> <username>`

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	fs := flag.NewFlagSet("cafe", flag.ContinueOnError)
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "database driver (postgres or sqlite)")
	fs.StringVar(&cfg.Host, "host", cfg.Host, "database host")
	fs.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return 2
	}
	cfg.DBName, cfg.Port, cfg.User = fs.Arg(0), fs.Arg(1), fs.Arg(2)

	log, closer, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := terminal.Stdio()
	if cfg.Password == "" && cfg.Driver == config.DriverPostgres {
		if cfg.Password, err = term.ReadSecret(ctx, "Database password: "); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to read the database password:", err)
			return 1
		}
	}

	fmt.Print("Connecting to database...")
	store, err := config.OpenStore(ctx, cfg, log)
	if err != nil {
		fmt.Println()
		fmt.Fprintln(os.Stderr, "Error - Unable to connect to the database:", err)
		log.WithError(err).Error("Failed to connect to database.")
		return 1
	}
	fmt.Println("Done")
	defer func() {
		fmt.Print("Disconnecting from database...")
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("Close failed.")
		}
		fmt.Println("Done\n\nBye !")
	}()

	svc := services.New(store, log, services.WithBcryptCost(cfg.BcryptCost))
	if err := svc.EnsureManager(ctx, cfg.SeedManagerLogin, cfg.SeedManagerPassword); err != nil {
		log.WithError(err).Error("Failed to seed the Manager account.")
	}

	printBanner()
	if err := session.New(svc, term, log).Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("Session ended with an error.")
		fmt.Fprintln(os.Stderr, err)
	}
	log.WithFields(logrus.Fields{"database": cfg.DBName}).Info("Session closed.")
	return 0
}

func printBanner() {
	fmt.Println()
	fmt.Println("*******************************************************")
	fmt.Println("              User Interface                           ")
	fmt.Println("*******************************************************")
	fmt.Println()
}
