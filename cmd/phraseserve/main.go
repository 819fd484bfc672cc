// Copyright 2025 The PhraseServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the phrase prediction server and CLI [DBG]
application.

PhraseServe provides predictive text completion that blends static
dictionary word lists with a learned, persistent n-gram phrase history.
Dictionaries propose prefix matches and spellcheck corrections; the user
database reranks them from what was actually typed before, with bigram
and trigram context weighing in when available. It can operate as a
MessagePack IPC server for integration with input methods and editors,
or as a CLI application for testing and debugging.

# Usage

Start the server with default settings:

	phraseserve

Use custom dictionaries and enable debug mode:

	phraseserve -data /usr/share/hunspell -dicts en_US,de_DE -d

Run in CLI mode for interactive testing:

	phraseserve -c -limit 10 -scores

Import a text corpus into the user database and exit:

	phraseserve -train corpus.txt

Run the decay pass over the user database and exit:

	phraseserve -cleanup

The data directory should contain hunspell-style word lists named
en_US.dic, de_DE.dic, etc. The user database is a single SQLite file,
created on first use under the platform data directory.

# Configuration

Runtime configuration is managed through a TOML file that supports
server parameters, store limits, and dictionary settings:

	[server]
	max_limit = 20
	max_prefix = 60

	[store]
	max_rows = 50000
	cleanup_on_exit = false

	[dict]
	dictionaries = ["en_US", "de_DE"]

The config file is automatically created with defaults if it doesn't
exist.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Requests are
processed synchronously with millisecond timing included in candidate
responses.

Send a candidates request:

	{"id": "req1", "cmd": "candidates", "in": "col", "p1": "nice"}

Receive ranked candidates:

	{"id": "req1", "cands": [{"ph": "colour", "sc": 0.75, "u": true}], "c": 1, "t": 2}

Learning, forgetting, dictionary switching and store maintenance use
the same envelope; see the server package documentation for the full
command set.

# CLI Mode

CLI mode provides an interactive interface for testing the prediction
loop. It reads prefixes from stdin, displays ranked candidates, and
supports committing a candidate so learning and context behave like a
real typing session:

	> col
	 1. * colour
	 2.   cold
	> :commit 1

This mode is primarily intended for development and testing new
features before deploying to server mode.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/mike-fabian/phraseserve/internal/cli"
	pslog "github.com/mike-fabian/phraseserve/internal/logger"
	"github.com/mike-fabian/phraseserve/internal/textnorm"
	"github.com/mike-fabian/phraseserve/internal/utils"
	"github.com/mike-fabian/phraseserve/pkg/config"
	"github.com/mike-fabian/phraseserve/pkg/engine"
	"github.com/mike-fabian/phraseserve/pkg/server"
)

const (
	Version = "0.2.0-beta"
	AppName = "phraseserve"
	gh      = "https://github.com/mike-fabian/phraseserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	dictDir := flag.String("data", "", "Directory containing .dic word lists")
	dbPath := flag.String("db", "", "Path of the user phrase database")
	configPath := flag.String("config", "", "Path of the TOML config file")
	dicts := flag.String("dicts", "", "Comma-separated dictionary lookup order (overrides config)")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of candidates to show in CLI mode")
	showScores := flag.Bool("scores", defaultConfig.CLI.ShowScores, "Show blended scores next to CLI candidates")
	trainFile := flag.String("train", "", "Import a text corpus into the user database, then exit")
	trainLang := flag.String("lang", "", "Language of the training corpus (picks the tokenizer)")
	runCleanup := flag.Bool("cleanup", false, "Run the decay pass over the user database, then exit")
	showStats := flag.Bool("stats", false, "Print user database statistics, then exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}
	log.SetOutput(os.Stderr)

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	appConfig, activeConfigPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activeConfigPath))

	storePath := *dbPath
	if storePath == "" {
		storePath = appConfig.Store.Path
	}
	resolvedDBPath, err := pathResolver.UserDBPath(storePath)
	if err != nil {
		log.Fatalf("Failed to resolve user database path: %v", err)
	}

	names := appConfig.Dict.Dictionaries
	if *dicts != "" {
		names = strings.Split(*dicts, ",")
	}
	dictSource := *dictDir
	if dictSource == "" {
		dictSource = appConfig.Dict.Dir
	}

	eng, err := engine.New(engine.Options{
		DictionaryDirs: pathResolver.DictionaryDirs(dictSource),
		Dictionaries:   names,
		KeepAccents:    appConfig.Dict.KeepAccents,
		StorePath:      resolvedDBPath,
		MaxRows:        appConfig.Store.MaxRows,
	})
	if err != nil {
		log.Fatalf("Failed to open engine: %v", err)
	}
	defer eng.Close()
	log.Debugf("Engine init done: db=(%s) dicts=%v", resolvedDBPath, names)

	// One-shot maintenance modes run and exit before any serving starts.
	if *trainFile != "" {
		tok := textnorm.TokenizerFor(*trainLang)
		if err := eng.Store().ReadTrainingDataFromFile(*trainFile, tok); err != nil {
			log.Fatalf("Training import failed: %v", err)
		}
		log.Infof("Imported training data from %s", *trainFile)
		return
	}
	if *runCleanup {
		if err := eng.Cleanup(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		log.Info("Cleanup done")
		return
	}
	if *showStats {
		printStats(eng, appConfig.Store.MaxRows)
		return
	}

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler := cli.NewInputHandler(eng, *limit, *showScores)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(eng, os.Stdin, os.Stdout)
	srv.SetLimits(appConfig.Server.MaxLimit, appConfig.Server.MaxPrefix)
	showStartupInfo(resolvedDBPath, names)

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	if appConfig.Store.CleanupOnExit {
		if err := eng.Cleanup(); err != nil {
			log.Errorf("Cleanup on exit failed: %v", err)
		}
	}
	if err := eng.Sync(); err != nil {
		log.Errorf("Final sync failed: %v", err)
	}
}

func printVersion() {
	logger := pslog.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ PhraseServe ] Predictive completions that learn from you!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

func printStats(eng *engine.Engine, maxRows int) {
	st, err := eng.Store().Stats()
	if err != nil {
		log.Fatalf("Stats query failed: %v", err)
	}
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	log.Infof("database: ( %s )", eng.Store().Path())
	log.Infof("rows: %d", st.TotalRows)
	log.Infof("distinct phrases: %d", st.DistinctPhrases)
	log.Infof("total frequency: %d", st.TotalFrequency)
	log.Infof("single-use rows: %d", st.SingleUseRows)
	log.Infof("shortcut rows: %d", st.ShortcutRows)
	if plan, err := eng.Store().PlanCleanup(maxRows); err == nil {
		log.Infof("next cleanup would evict %d, drop %d stale, decay %d",
			len(plan.Pass1Delete), len(plan.Pass2Delete), len(plan.Pass2Halve))
	}
	log.SetLevel(currentLevel)
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(dbPath string, dicts []string) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	fmt.Fprintln(os.Stderr, "=============")
	fmt.Fprintln(os.Stderr, " PhraseServe ")
	fmt.Fprintln(os.Stderr, "=============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Info("init: OK")
	log.Infof("user db: ( %s )", dbPath)
	log.Infof("dictionaries: %v", dicts)
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "=============")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
