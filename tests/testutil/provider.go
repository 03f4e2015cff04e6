package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	gosync "sync"
	"testing"
)

// Message is a message record as the fake provider stores it. Ref is
// served as "@id"; leave it empty to exercise the raw id fallback.
type Message struct {
	Ref            string
	ID             string
	From           string
	Subject        string
	CreatedAt      string
	HasAttachments bool
	Text           string
	HTML           []string
	Source         string
}

// FakeProvider is an in-process mail.tm compatible API for tests.
type FakeProvider struct {
	Server *httptest.Server

	mu        gosync.Mutex
	domains   []string
	accounts  map[string]string
	tokens    map[string]string
	messages  map[string][]Message
	calls     map[string]int
	failPaths map[string]int
	lastAuth  string
}

// NewFakeProvider starts a fake provider offering the given domains.
// The server is closed when the test completes.
func NewFakeProvider(t *testing.T, domains ...string) *FakeProvider {
	t.Helper()

	p := &FakeProvider{
		domains:   domains,
		accounts:  make(map[string]string),
		tokens:    make(map[string]string),
		messages:  make(map[string][]Message),
		calls:     make(map[string]int),
		failPaths: make(map[string]int),
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Server.Close)
	return p
}

// URL returns the base URL of the fake provider.
func (p *FakeProvider) URL() string {
	return p.Server.URL
}

// AddAccount registers an account directly.
func (p *FakeProvider) AddAccount(address, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accounts[address] = password
}

// HasAccount reports whether address was registered.
func (p *FakeProvider) HasAccount(address string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.accounts[address]
	return ok
}

// Deliver appends messages to the mailbox of address.
func (p *FakeProvider) Deliver(address string, msgs ...Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[address] = append(p.messages[address], msgs...)
}

// FailWith makes every request whose "METHOD /path" key starts with
// prefix answer with status.
func (p *FakeProvider) FailWith(prefix string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPaths[prefix] = status
}

// Calls returns how often "METHOD /path" was requested.
func (p *FakeProvider) Calls(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

// LastAuthorization returns the Authorization header of the last request.
func (p *FakeProvider) LastAuthorization() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAuth
}

func (p *FakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	p.calls[key]++
	p.lastAuth = r.Header.Get("Authorization")

	for prefix, status := range p.failPaths {
		if strings.HasPrefix(key, prefix) {
			writeJSON(w, status, map[string]string{
				"hydra:description": "forced failure",
			})
			return
		}
	}

	switch {
	case key == "GET /domains":
		members := make([]map[string]any, 0, len(p.domains))
		for i, d := range p.domains {
			members = append(members, map[string]any{
				"@id":      "/domains/d" + string(rune('0'+i)),
				"id":       "d" + string(rune('0'+i)),
				"domain":   d,
				"isActive": true,
			})
		}
		writeCollection(w, members)

	case key == "POST /accounts":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, exists := p.accounts[body["address"]]; exists {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"hydra:description": "address: This value is already used.",
			})
			return
		}
		p.accounts[body["address"]] = body["password"]
		writeJSON(w, http.StatusCreated, map[string]any{
			"id": "acc-" + body["address"], "address": body["address"],
		})

	case key == "POST /token":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		pw, ok := p.accounts[body["address"]]
		if !ok || pw != body["password"] {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"message": "Invalid credentials.",
			})
			return
		}
		token := "tok-" + body["address"]
		p.tokens[token] = body["address"]
		writeJSON(w, http.StatusOK, map[string]string{
			"id": "acc-" + body["address"], "token": token,
		})

	default:
		address, ok := p.authorize(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"message": "JWT Token not found",
			})
			return
		}
		p.serveMailbox(w, r, address)
	}
}

func (p *FakeProvider) authorize(r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	address, ok := p.tokens[token]
	return address, ok
}

func (p *FakeProvider) serveMailbox(w http.ResponseWriter, r *http.Request, address string) {
	path := r.URL.Path
	switch {
	case r.Method == http.MethodGet && path == "/me":
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "acc-" + address, "address": address, "quota": 40000000,
		})

	case r.Method == http.MethodGet && path == "/messages":
		members := make([]map[string]any, 0)
		for _, m := range p.messages[address] {
			members = append(members, summaryRecord(m))
		}
		writeCollection(w, members)

	case strings.HasPrefix(path, "/messages/"):
		id := strings.TrimPrefix(path, "/messages/")
		idx := p.find(address, id)
		if idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"hydra:description": "Not Found",
			})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, detailRecord(p.messages[address][idx]))
		case http.MethodDelete:
			msgs := p.messages[address]
			p.messages[address] = append(msgs[:idx:idx], msgs[idx+1:]...)
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPatch:
			writeJSON(w, http.StatusOK, detailRecord(p.messages[address][idx]))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/sources/"):
		id := strings.TrimPrefix(path, "/sources/")
		idx := p.find(address, id)
		if idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"hydra:description": "Not Found",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"id":   id,
			"data": p.messages[address][idx].Source,
		})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *FakeProvider) find(address, id string) int {
	for i, m := range p.messages[address] {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func summaryRecord(m Message) map[string]any {
	rec := map[string]any{
		"from":           map[string]string{"address": m.From, "name": ""},
		"subject":        m.Subject,
		"createdAt":      m.CreatedAt,
		"hasAttachments": m.HasAttachments,
		"seen":           false,
	}
	if m.Ref != "" {
		rec["@id"] = m.Ref
	} else {
		rec["id"] = m.ID
	}
	return rec
}

func detailRecord(m Message) map[string]any {
	rec := summaryRecord(m)
	rec["@id"] = "/messages/" + m.ID
	rec["id"] = m.ID
	rec["text"] = m.Text
	html := m.HTML
	if html == nil {
		html = []string{}
	}
	rec["html"] = html
	rec["to"] = []map[string]string{}
	rec["attachments"] = []map[string]any{}
	return rec
}

func writeCollection(w http.ResponseWriter, members []map[string]any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"hydra:member":     members,
		"hydra:totalItems": len(members),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/ld+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
