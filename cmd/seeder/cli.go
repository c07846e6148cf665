package main

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/pflag"
)

// defaultDataFile документ по умолчанию для download, validate и seed
const defaultDataFile = "ordercloud-seed.yml"

// Коды завершения процесса
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var (
	errUsage = errors.New("command required")
	errHelp  = errors.New("help requested")
)

type commandInfo struct {
	usage       string
	description string
	// remote команда обращается к платформе и требует входа
	remote bool
	// positional команда принимает путь к документу или URL
	positional bool
}

var commands = map[string]commandInfo{
	"download": {usage: "download [filePath]", description: "Create a local seed file from an existing marketplace.", remote: true, positional: true},
	"validate": {usage: "validate [data]", description: "Validate a potential data source for seeding.", positional: true},
	"seed":     {usage: "seed [data]", description: "Create a new marketplace and seed data from a file, URL or template name.", remote: true, positional: true},
	"serve":    {usage: "serve", description: "Run the validation HTTP API."},
}

// invocation разобранная командная строка
type invocation struct {
	command    string
	source     string
	configPath string
	flags      *pflag.FlagSet
}

func newFlagSet(command string, info commandInfo, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SortFlags = false

	fs.StringP("config", "c", "", "Path to the configuration file")
	fs.String("log-level", "", "Log level: debug, info, warn or error")
	fs.StringP("environment", "e", "", "Environment: sandbox, staging or production")
	if info.remote {
		fs.StringP("grantType", "g", "", "Grant type: password or client_credentials")
		fs.StringP("clientID", "i", "", "Client ID")
		fs.StringP("username", "u", "", "Username")
		fs.StringP("password", "p", "", "Password")
		fs.StringP("clientSecret", "s", "", "Client secret")
		fs.StringSliceP("scope", "r", nil, "Comma separated API roles")
		fs.StringP("token", "t", "", "Access token")
		fs.Int("max-concurrent", 0, "Maximum number of concurrent requests")
	}
	if command == "serve" {
		fs.Int("port", 0, "HTTP port")
	}
	return fs
}

// parseArgs разбирает аргументы после имени программы
func parseArgs(args []string, stderr io.Writer) (*invocation, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	command := args[0]
	if command == "-h" || command == "--help" || command == "help" {
		return nil, errHelp
	}
	info, ok := commands[command]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", command)
	}

	fs := newFlagSet(command, info, stderr)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, errHelp
		}
		return nil, err
	}

	inv := &invocation{command: command, flags: fs}
	inv.configPath, _ = fs.GetString("config")

	switch {
	case !info.positional && fs.NArg() > 0:
		return nil, fmt.Errorf("%s takes no arguments", command)
	case fs.NArg() > 1:
		return nil, fmt.Errorf("%s takes at most one argument, got %d", command, fs.NArg())
	case info.positional:
		inv.source = defaultDataFile
		if fs.NArg() == 1 {
			inv.source = fs.Arg(0)
		}
	}
	return inv, nil
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Usage: seeder <command> [args] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range names {
		fmt.Fprintf(w, "  %-22s %s\n", commands[name].usage, commands[name].description)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'seeder <command> --help' for the command flags.")
}
