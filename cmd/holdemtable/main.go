package main

import (
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version   kong.VersionFlag `short:"v" help:"Show version"`
	LogFormat string           `enum:"console,json" default:"console" env:"HOLDEM_LOG_FORMAT" help:"Log output format (console or json)"`
	Debug     bool             `env:"HOLDEM_DEBUG" help:"Enable debug logging"`

	Serve    ServeCmd    `cmd:"" help:"Run the table server"`
	Simulate SimulateCmd `cmd:"" help:"Play random hands on many tables and check chip conservation"`
	Eval     EvalCmd     `cmd:"" help:"Evaluate a hand, e.g. eval As Kd -- Qh Jh Th"`
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("holdemtable"),
		kong.Description("Multiplayer Texas Hold'em table engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
