package server

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mike-fabian/phraseserve/internal/textnorm"
	"github.com/mike-fabian/phraseserve/pkg/engine"
)

const (
	defaultMaxLimit       = engine.MaxCandidates
	defaultMaxInputLength = 60
)

// Server handles msgpack IPC for the prediction engine.
type Server struct {
	engine         *engine.Engine
	decoder        *msgpack.Decoder
	writer         *bufio.Writer
	encoder        *msgpack.Encoder
	maxLimit       int
	maxInputLength int
}

// NewServer wires the engine to a client connection, normally
// os.Stdin/os.Stdout.
func NewServer(e *engine.Engine, in io.Reader, out io.Writer) *Server {
	w := bufio.NewWriter(out)
	return &Server{
		engine:         e,
		decoder:        msgpack.NewDecoder(in),
		writer:         w,
		encoder:        msgpack.NewEncoder(w),
		maxLimit:       defaultMaxLimit,
		maxInputLength: defaultMaxInputLength,
	}
}

// SetLimits overrides the per-request candidate cap and the accepted
// input length, normally from the [server] config section. Zero or
// negative values keep the defaults.
func (s *Server) SetLimits(maxLimit, maxInputLength int) {
	if maxLimit > 0 {
		s.maxLimit = maxLimit
	}
	if maxInputLength > 0 {
		s.maxInputLength = maxInputLength
	}
}

// Start processes requests until the client closes its end. The ready
// status goes out first so clients can block on it.
func (s *Server) Start() error {
	log.Debug("Starting server.")
	s.send(StatusResponse{Status: "ready"})

	for {
		var request Request
		if err := s.decoder.Decode(&request); err != nil {
			if err == io.EOF {
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			return err
		}
		s.handleRequest(request)
	}
}

func (s *Server) handleRequest(request Request) {
	switch request.Command {
	case "candidates":
		s.handleCandidates(request)
	case "learn":
		s.handleLearn(request)
	case "forget":
		s.handleForget(request)
	case "dicts":
		s.handleDictionaries(request)
	case "train":
		s.handleTrain(request)
	case "cleanup":
		s.handleCleanup(request)
	case "sync":
		s.handleSync(request)
	case "stats":
		s.handleStats(request)
	case "health":
		s.send(StatusResponse{ID: request.ID, Status: "ok"})
	default:
		s.sendError(request.ID, fmt.Sprintf("Unknown command: %s", request.Command), 400)
	}
}

func (s *Server) handleCandidates(request Request) {
	if request.Input == "" {
		s.sendError(request.ID, "Missing 'in' parameter", 400)
		return
	}
	if len(request.Input) > s.maxInputLength {
		s.sendError(request.ID, fmt.Sprintf("Input exceeds maximum length of %d bytes", s.maxInputLength), 400)
		return
	}
	limit := request.Limit
	if limit < 1 || limit > s.maxLimit {
		limit = s.maxLimit
	}

	start := time.Now()
	candidates := s.engine.Candidates(request.Input, request.PPhrase, request.PPPhrase)
	elapsed := time.Since(start)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]ResponseCandidate, len(candidates))
	for i, c := range candidates {
		out[i] = ResponseCandidate{Phrase: c.Phrase, Score: c.Score, FromUser: c.FromUser}
	}
	s.send(CandidatesResponse{
		ID:         request.ID,
		Candidates: out,
		Count:      len(out),
		TimeTaken:  elapsed.Milliseconds(),
	})
}

func (s *Server) handleLearn(request Request) {
	if request.Phrase == "" {
		s.sendError(request.ID, "Missing 'ph' parameter", 400)
		return
	}
	if err := s.engine.Learn(request.Input, request.Phrase, request.PPhrase, request.PPPhrase); err != nil {
		s.sendError(request.ID, "Learning failed", 500)
		return
	}
	s.send(StatusResponse{ID: request.ID, Status: "ok"})
}

func (s *Server) handleForget(request Request) {
	if request.Phrase == "" {
		s.sendError(request.ID, "Missing 'ph' parameter", 400)
		return
	}
	if err := s.engine.Forget(request.Input, request.Phrase); err != nil {
		s.sendError(request.ID, "Forget failed", 500)
		return
	}
	s.send(StatusResponse{ID: request.ID, Status: "ok"})
}

// handleDictionaries gets or sets the lookup order: with a dicts field it
// switches, without one it just reports.
func (s *Server) handleDictionaries(request Request) {
	if len(request.Dictionaries) > 0 {
		s.engine.SetDictionaries(request.Dictionaries)
	}
	s.send(StatusResponse{
		ID:           request.ID,
		Status:       "ok",
		Dictionaries: s.engine.Dictionaries(),
	})
}

func (s *Server) handleTrain(request Request) {
	if request.Path == "" {
		s.sendError(request.ID, "Missing 'path' parameter", 400)
		return
	}
	tok := textnorm.TokenizerFor(request.Lang)
	if err := s.engine.Store().ReadTrainingDataFromFile(request.Path, tok); err != nil {
		log.Errorf("Training import failed: %v", err)
		s.sendError(request.ID, "Training import failed", 500)
		return
	}
	s.send(StatusResponse{ID: request.ID, Status: "ok"})
}

func (s *Server) handleCleanup(request Request) {
	if err := s.engine.Cleanup(); err != nil {
		s.sendError(request.ID, "Cleanup failed", 500)
		return
	}
	s.send(StatusResponse{ID: request.ID, Status: "ok"})
}

func (s *Server) handleSync(request Request) {
	if err := s.engine.Sync(); err != nil {
		s.sendError(request.ID, "Sync failed", 500)
		return
	}
	s.send(StatusResponse{ID: request.ID, Status: "ok"})
}

func (s *Server) handleStats(request Request) {
	st, err := s.engine.Store().Stats()
	if err != nil {
		s.sendError(request.ID, "Stats query failed", 500)
		return
	}
	s.send(StatsResponse{
		ID:              request.ID,
		TotalRows:       st.TotalRows,
		DistinctPhrases: st.DistinctPhrases,
		TotalFrequency:  st.TotalFrequency,
		SingleUseRows:   st.SingleUseRows,
		ShortcutRows:    st.ShortcutRows,
	})
}

func (s *Server) send(response any) {
	if err := s.encoder.Encode(response); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		log.Errorf("Flushing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
