// Command workday-token mints a bearer token for a worker using
// AUTH_JWT_SECRET, for local testing and service accounts.
package main

import (
	"flag"
	"fmt"
	"os"

	"workday/internal/auth"
	"workday/internal/cli"
	"workday/internal/core"
	"workday/internal/log"
)

func main() {
	uid := flag.String("uid", "", "worker id (token subject)")
	email := flag.String("email", "", "worker email")
	name := flag.String("name", "", "worker display name")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger("warn")

	cfg, err := cli.LoadConfig()
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	if !cfg.AuthEnabled() {
		fmt.Fprintln(os.Stderr, "AUTH_JWT_SECRET is not set")
		os.Exit(1)
	}
	if *uid == "" {
		fmt.Fprintln(os.Stderr, "usage: workday-token -uid <id> [-email <email>] [-name <name>]")
		os.Exit(2)
	}

	authn := auth.New(auth.Config{
		Secret:   cfg.AuthJWTSecret,
		TokenTTL: cfg.AuthTokenTTL,
		Issuer:   cfg.AuthIssuer,
	}, logger)

	token, err := authn.Mint(core.User{ID: *uid, Email: *email, DisplayName: *name})
	if err != nil {
		cli.Fatal(logger, "Failed to mint token", err, log.FieldUID, *uid)
	}
	fmt.Println(token)
}
