package main

import (
	stdLog "log"
	"time"

	"github.com/Astemirdum/library-portal/portal/app"
	"github.com/Astemirdum/library-portal/portal/config"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdLog.Println("load envs from .env ", err)
	}
	cfg := config.NewConfig(
		config.WithWriteTimeout(time.Minute),
	)

	if err := app.Run(cfg); err != nil {
		stdLog.Fatal("app.Run ", err)
	}
}
