package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"music-recognition/utils"
)

func main() {
	_ = utils.CreateFolder("tmp")
	_ = utils.CreateFolder(SONGS_DIR)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "find":
		if len(os.Args) < 3 {
			fmt.Println("usage: music-recognition find <path_to_audio_file>")
			os.Exit(1)
		}
		find(os.Args[2])

	case "save":
		saveCmd := flag.NewFlagSet("save", flag.ExitOnError)
		force := saveCmd.Bool("force", false, "index file even without complete metadata")
		saveCmd.BoolVar(force, "f", false, "index file even without complete metadata (shorthand)")
		verbose := saveCmd.Int("verbose", 1, "verbosity: 0 silent, 1 per-song summary, 2 also dump hash pairs")
		saveCmd.Parse(os.Args[2:])
		if saveCmd.NArg() < 1 {
			fmt.Println("usage: music-recognition save [-f|--force] [-verbose 0|1|2] <path_to_file_or_dir>")
			os.Exit(1)
		}
		if err := save(saveCmd.Arg(0), *force, *verbose); err != nil {
			fmt.Printf("error: %v\n", err)
			os.Exit(1)
		}

	case "erase":
		dbOnly := true
		all := false

		if len(os.Args) > 2 {
			switch os.Args[2] {
			case "db":
				dbOnly = true
			case "all":
				dbOnly = false
				all = true
			default:
				fmt.Println("usage: music-recognition erase [db | all]")
				os.Exit(1)
			}
		}

		erase(SONGS_DIR, dbOnly, all)

	case "serve":
		serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
		protocol := serveCmd.String("proto", "http", "protocol label shown in the startup log; the server always listens over plain HTTP")
		port := serveCmd.String("p", "5000", "port to use")
		serveCmd.Parse(os.Args[2:])
		serve(*protocol, *port)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: music-recognition <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  find  <audio_file>                          identify a recording against the catalog")
	fmt.Println("  save  [-f] [-verbose 0|1|2] <file_or_dir>   fingerprint audio file(s) into the catalog")
	fmt.Println("  erase [db | all]                            clear the catalog (and optionally audio files)")
	fmt.Println("  serve [-proto http] [-p 5000]               start the web server")
}
