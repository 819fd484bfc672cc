// Package cli handles cmd line input and candidates for DBG and testing
// the prediction loop without an IPC client.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/mike-fabian/phraseserve/pkg/engine"
)

// InputHandler processes user input from stdin, showing ranked
// candidates. Committing a candidate feeds the learning sink and shifts
// the context window, so repeated sessions behave like real typing.
type InputHandler struct {
	engine     *engine.Engine
	limit      int
	showScores bool

	lastInput string
	pPhrase   string
	ppPhrase  string
}

// NewInputHandler handles initialization of the InputHandler
func NewInputHandler(e *engine.Engine, limit int, showScores bool) *InputHandler {
	return &InputHandler{
		engine:     e,
		limit:      limit,
		showScores: showScores,
	}
}

// Start begins the interface loop.
// It continuously prompts for input, reads a line from stdin,
// and passes the trimmed input to handleInput() for processing.
// Loop terminates if an error occurs while reading from stdin
func (h *InputHandler) Start() error {
	log.Print("phraseserve CLI")
	reader := bufio.NewReader(os.Stdin)
	log.Print("type a prefix and press Enter to see candidates (Ctrl+C to exit)")
	log.Print("commands: :commit N, :forget WORD, :dicts a,b, :stats, :reset")

	for {
		log.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			h.handleCommand(line)
			continue
		}
		h.handleInput(line)
	}
}

// handleInput shows the ranked candidates for one typed prefix.
func (h *InputHandler) handleInput(input string) {
	start := time.Now()
	candidates := h.engine.Candidates(input, h.pPhrase, h.ppPhrase)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for input '%s'", elapsed, input)

	if len(candidates) == 0 {
		log.Warnf("No candidates found for input: '%s'", input)
		h.lastInput = input
		return
	}
	if len(candidates) > h.limit {
		candidates = candidates[:h.limit]
	}
	h.lastInput = input

	log.Printf("Found %d candidates for input '%s' (context: %q, %q):",
		len(candidates), input, h.pPhrase, h.ppPhrase)
	for i, c := range candidates {
		clWord := fmt.Sprintf("\033[38;5;75m%s\033[0m", c.Phrase)
		marker := " "
		if c.FromUser {
			marker = "*"
		}
		if h.showScores {
			log.Printf("%2d. %s %-40s (score: %.4f)", i+1, marker, clWord, c.Score)
		} else {
			log.Printf("%2d. %s %s", i+1, marker, clWord)
		}
	}
}

func (h *InputHandler) handleCommand(line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":commit":
		if len(fields) != 2 {
			log.Error("usage: :commit N")
			return
		}
		h.commit(fields[1])
	case ":forget":
		if len(fields) != 2 {
			log.Error("usage: :forget WORD")
			return
		}
		if err := h.engine.Forget("", fields[1]); err != nil {
			log.Errorf("Forget failed: %v", err)
			return
		}
		log.Printf("Forgot '%s'", fields[1])
	case ":dicts":
		if len(fields) == 2 {
			h.engine.SetDictionaries(strings.Split(fields[1], ","))
		}
		log.Printf("Dictionaries: %s", strings.Join(h.engine.Dictionaries(), ", "))
	case ":stats":
		st, err := h.engine.Store().Stats()
		if err != nil {
			log.Errorf("Stats failed: %v", err)
			return
		}
		log.Printf("rows: %d, phrases: %d, total freq: %d, single-use: %d, shortcuts: %d",
			st.TotalRows, st.DistinctPhrases, st.TotalFrequency, st.SingleUseRows, st.ShortcutRows)
	case ":reset":
		h.lastInput, h.pPhrase, h.ppPhrase = "", "", ""
		log.Print("Context cleared")
	default:
		log.Errorf("Unknown command: %s", fields[0])
	}
}

// commit learns candidate number arg for the last shown input and
// advances the context window.
func (h *InputHandler) commit(arg string) {
	if h.lastInput == "" {
		log.Error("Nothing to commit: type a prefix first")
		return
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		log.Errorf("Bad candidate number: %s", arg)
		return
	}
	candidates := h.engine.Candidates(h.lastInput, h.pPhrase, h.ppPhrase)
	if n > len(candidates) {
		log.Errorf("Only %d candidates shown", len(candidates))
		return
	}
	phrase := candidates[n-1].Phrase
	if err := h.engine.Learn(h.lastInput, phrase, h.pPhrase, h.ppPhrase); err != nil {
		log.Errorf("Learning failed: %v", err)
		return
	}
	h.ppPhrase = h.pPhrase
	h.pPhrase = phrase
	h.lastInput = ""
	log.Printf("Committed '%s'", phrase)
}
