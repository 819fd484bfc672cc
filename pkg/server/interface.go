/*
Package server implements msgpack IPC for the phrase prediction engine.

The server speaks a request/response protocol over stdin/stdout using
binary msgpack encoding. Each request carries an ID the response echoes
back, a command string, and the fields that command needs; everything
else is omitted on the wire.

A candidates request and its response look like (shown as JSON for
readability, the wire format is msgpack):

	{"id": "req_001", "cmd": "candidates", "in": "col", "p1": "nice"}
	{"id": "req_001", "cands": [{"ph": "colour", "sc": 0.75, "u": true}], "c": 1, "t": 2}

Learning and forgetting mutate the user history:

	{"id": "l_001", "cmd": "learn", "in": "col", "ph": "colour", "p1": "nice"}
	{"id": "f_001", "cmd": "forget", "ph": "colour"}

Dictionary management switches the lookup order at runtime, and the
maintenance commands (train, cleanup, sync, stats) wrap the store's
bulk operations. All commands answer with a status response or, on
failure, an error response carrying the request ID.
*/
package server

// Request is the single envelope for every client message; Command
// decides which fields matter.
type Request struct {
	ID           string   `msgpack:"id"`
	Command      string   `msgpack:"cmd"`
	Input        string   `msgpack:"in,omitempty"`
	Phrase       string   `msgpack:"ph,omitempty"`
	PPhrase      string   `msgpack:"p1,omitempty"`
	PPPhrase     string   `msgpack:"p2,omitempty"`
	Limit        int      `msgpack:"l,omitempty"`
	Dictionaries []string `msgpack:"dicts,omitempty"`
	Path         string   `msgpack:"path,omitempty"`
	Lang         string   `msgpack:"lang,omitempty"`
}

// ResponseCandidate is one ranked completion on the wire.
type ResponseCandidate struct {
	Phrase   string  `msgpack:"ph"`
	Score    float64 `msgpack:"sc"`
	FromUser bool    `msgpack:"u,omitempty"`
}

// CandidatesResponse answers a candidates request.
type CandidatesResponse struct {
	ID         string              `msgpack:"id"`
	Candidates []ResponseCandidate `msgpack:"cands"`
	Count      int                 `msgpack:"c"`
	TimeTaken  int64               `msgpack:"t"`
}

// StatusResponse acknowledges a mutating or management command.
type StatusResponse struct {
	ID           string   `msgpack:"id"`
	Status       string   `msgpack:"status"`
	Dictionaries []string `msgpack:"dicts,omitempty"`
}

// StatsResponse reports store health numbers.
type StatsResponse struct {
	ID              string `msgpack:"id"`
	TotalRows       int    `msgpack:"rows"`
	DistinctPhrases int    `msgpack:"phrases"`
	TotalFrequency  int64  `msgpack:"freq"`
	SingleUseRows   int    `msgpack:"single"`
	ShortcutRows    int    `msgpack:"shortcuts"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
