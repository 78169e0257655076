package main

import (
	"flag"
	"marketplace/config"
	"marketplace/db"
	"marketplace/log"
	"marketplace/mail"
	"marketplace/market"
	"marketplace/rpc"
	"marketplace/tasks"
)

var (
	enableMail bool
	logLevel   string
)

func init() {
	flag.BoolVar(&enableMail, "mail", false, "If mail alert is enabled")
	flag.StringVar(&logLevel, "log-level", "info", "Log level of the normal logger")
}

func main() {
	flag.Parse()

	log.Init()
	if err := log.SetLevel(logLevel); err != nil {
		panic(err)
	}

	config.Load(true)
	db.Init()
	mail.Init(enableMail)

	defer mail.AlertIfErr()

	if err := market.Init(); err != nil {
		panic(err)
	}

	tasks.Run()

	if err := rpc.Serve(config.GetListen()); err != nil {
		panic(err)
	}
}
