package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "register":
		err = registerCmd(apiURL, args)
	case "list":
		err = listCmd(apiURL, args)
	case "add":
		err = addCmd(apiURL, args)
	case "remove":
		err = removeCmd(apiURL, args)
	case "stats":
		err = statsCmd(apiURL, args)
	case "search":
		err = searchCmd(apiURL, args)
	case "player":
		err = playerCmd(apiURL, args)
	case "demo":
		err = demoCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`anictl - command line client for the AniVers API

USAGE:
  anictl <command> [options]

COMMANDS:
  register  Create an account
  list      Show your tracked anime
  add       Track an anime or change its status
  remove    Stop tracking an anime
  stats     Show status counts for you or another user
  search    Search the anime catalog
  player    Look up a player for a shikimori id
  demo      Register a throwaway user, track a few titles and print stats
  help      Show this help message

ENVIRONMENT:
  API_URL            Backend URL (default: http://localhost:8080)
  ANIVERS_EMAIL      Account email, used when --email is not given
  ANIVERS_PASSWORD   Account password, used when --password is not given

EXAMPLES:
  anictl register --email=me@example.com --password=secret1
  anictl add --id=21 --status=watching --title="One Piece"
  anictl stats --user=3f0c...
  anictl search --q=frieren --limit=5
  anictl player --mal=52991`)
}
