package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe()
	case "create-admin":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: orgsite create-admin <email> <password>")
			os.Exit(1)
		}
		err = runCreateAdmin(os.Args[2], os.Args[3])
	case "version":
		fmt.Printf("orgsite %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`orgsite - An organization website with an admin content panel

Usage:
  orgsite <command> [arguments]

Commands:
  serve                           Run the web server (default)
  create-admin <email> <password> Add an admin account (local backend only)
  version                         Print the orgsite version
  help                            Show this help message

Configuration is read from the environment and an optional .env file:
  SITE_NAME, SITE_URL, SITE_DESCRIPTION, ADDR
  BACKEND=local|supabase, SESSION_SECRET
  local:    DATABASE_PATH, STORAGE_DIR, JWT_SECRET, SMTP_*
  supabase: SUPABASE_URL, SUPABASE_ANON_KEY, BACKEND_TIMEOUT
  logging:  LOG_LEVEL, LOG_PATH, LOG_MAX_SIZE_MB, LOG_MAX_BACKUPS, LOG_MAX_AGE_DAYS, LOG_COMPRESS`)
}
