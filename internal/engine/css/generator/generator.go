// Package generator builds the utility stylesheet incrementally from the
// class-like tokens found in scanned sources.
package generator

import (
	"sort"
	"strings"
	"sync"

	"rds/internal/engine/css/rules"
	"rds/internal/shared/observability"

	lru "github.com/hashicorp/golang-lru/v2"
)

// BlockListSize bounds the negative token cache.
const BlockListSize = 20000

type Generator struct {
	mu       sync.Mutex
	matcher  *rules.Matcher
	blocked  *lru.Cache[string, struct{}]
	matches  map[string]*rules.Match
	files    map[string]map[string]struct{}
	ready    bool
	output   string
	valid    bool
	listener func()

	devtools      map[string]*rules.Match
	devtoolsOut   string
	devtoolsValid bool
}

func New(matcher *rules.Matcher) *Generator {
	blocked, err := lru.New[string, struct{}](BlockListSize)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	return &Generator{
		matcher:  matcher,
		blocked:  blocked,
		matches:  make(map[string]*rules.Match),
		files:    make(map[string]map[string]struct{}),
		devtools: make(map[string]*rules.Match),
	}
}

func (g *Generator) Matcher() *rules.Matcher {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.matcher
}

// SetMatcher swaps the rule table and forgets every match. Callers rescan.
func (g *Generator) SetMatcher(m *rules.Matcher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.matcher = m
	g.blocked.Purge()
	g.matches = make(map[string]*rules.Match)
	g.files = make(map[string]map[string]struct{})
	g.devtools = make(map[string]*rules.Match)
	g.valid = false
	g.devtoolsValid = false
	observability.CSSMatches.Set(0)
}

// OnUpdate registers the listener called when matches are added after
// MarkReady. It is called without the generator lock held.
func (g *Generator) OnUpdate(fn func()) {
	g.mu.Lock()
	g.listener = fn
	g.mu.Unlock()
}

// MarkReady ends the initial build.
func (g *Generator) MarkReady() {
	g.mu.Lock()
	g.ready = true
	g.mu.Unlock()
}

func (g *Generator) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// ScanFile records the tokens of path. It returns true when new utilities
// were matched. A token set that is a subset of the last scan of path is a
// no-op.
func (g *Generator) ScanFile(path, content string) bool {
	tokens := Tokenize(content)

	g.mu.Lock()
	prev := g.files[path]
	if prev != nil && subset(tokens, prev) {
		g.mu.Unlock()
		return false
	}
	next := make(map[string]struct{}, len(tokens))
	added := 0
	for _, tok := range tokens {
		next[tok] = struct{}{}
		if g.addLocked(tok) {
			added++
		}
	}
	g.files[path] = next

	var notify func()
	if added > 0 {
		g.valid = false
		g.devtoolsValid = false
		observability.CSSMatches.Set(float64(len(g.matches)))
		if g.ready {
			notify = g.listener
		}
	}
	g.mu.Unlock()

	if notify != nil {
		notify()
	}
	return added > 0
}

// Forget drops the per-file token set of path. Matches stay: other files
// may use them and the stylesheet only grows during a session.
func (g *Generator) Forget(path string) {
	g.mu.Lock()
	delete(g.files, path)
	g.mu.Unlock()
}

func subset(tokens []string, set map[string]struct{}) bool {
	for _, t := range tokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

func (g *Generator) addLocked(token string) bool {
	if _, ok := g.matches[token]; ok {
		return false
	}
	if g.blocked.Contains(token) {
		return false
	}
	mt, ok := g.matcher.Match(token)
	if !ok {
		g.blocked.Add(token, struct{}{})
		observability.CSSBlockedTokens.Inc()
		return false
	}
	g.matches[token] = mt
	delete(g.devtools, token)
	return true
}

// Tokens returns the matched tokens, sorted.
func (g *Generator) Tokens() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.matches))
	for tok := range g.matches {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func (g *Generator) Has(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.matches[token]
	return ok
}

// Generate renders the stylesheet. Output is cached until a new match is added.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.valid {
		return g.output
	}
	g.output = render(g.matcher, g.matches)
	g.valid = true
	return g.output
}

// ObserveRuntime feeds class names seen in the browser. Returns true when
// the devtools sheet changed.
func (g *Generator) ObserveRuntime(classes []string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	changed := false
	for _, c := range classes {
		c = strings.TrimSpace(c)
		if !Candidate(c) {
			continue
		}
		if _, ok := g.matches[c]; ok {
			continue
		}
		if _, ok := g.devtools[c]; ok {
			continue
		}
		if g.blocked.Contains(c) {
			continue
		}
		mt, ok := g.matcher.Match(c)
		if !ok {
			g.blocked.Add(c, struct{}{})
			continue
		}
		g.devtools[c] = mt
		changed = true
	}
	if changed {
		g.devtoolsValid = false
	}
	return changed
}

// GenerateDevtools renders the runtime-only utilities.
func (g *Generator) GenerateDevtools() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.devtoolsValid {
		return g.devtoolsOut
	}
	g.devtoolsOut = render(g.matcher, g.devtools)
	g.devtoolsValid = true
	return g.devtoolsOut
}

func render(m *rules.Matcher, matches map[string]*rules.Match) string {
	list := make([]*rules.Match, 0, len(matches))
	for _, mt := range matches {
		list = append(list, mt)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Entry.Order != list[j].Entry.Order {
			return list[i].Entry.Order < list[j].Entry.Order
		}
		return list[i].Token < list[j].Token
	})

	var defaults, keyframes []string
	seenDefaults := make(map[string]bool)
	seenKeyframes := make(map[string]bool)
	var base []string
	var media []rules.Block

	for _, mt := range list {
		needs := mt.Entry.Needs
		if needs.Defaults != "" && !seenDefaults[needs.Defaults] {
			seenDefaults[needs.Defaults] = true
			if block := m.Defaults(needs.Defaults); block != "" {
				defaults = append(defaults, block)
			}
		}
		if needs.Keyframes != "" && !seenKeyframes[needs.Keyframes] {
			seenKeyframes[needs.Keyframes] = true
			if kf := m.Keyframes(needs.Keyframes); kf != "" {
				keyframes = append(keyframes, kf)
			}
		}

		block := rules.Render(mt)
		if block.Media == "" {
			base = append(base, block.CSS)
		} else {
			media = append(media, block)
		}
		if needs.Container {
			for _, cb := range m.ContainerBlocks(mt) {
				media = append(media, cb)
			}
		}
	}

	// Stable: equal media keep match order.
	sort.SliceStable(media, func(i, j int) bool {
		if media[i].MediaOrder != media[j].MediaOrder {
			return media[i].MediaOrder < media[j].MediaOrder
		}
		return media[i].Media < media[j].Media
	})

	var b strings.Builder
	for _, s := range defaults {
		b.WriteString(s + "\n")
	}
	for _, s := range keyframes {
		b.WriteString(s + "\n")
	}
	for _, s := range base {
		b.WriteString(s + "\n")
	}
	for i := 0; i < len(media); {
		j := i
		b.WriteString("@media " + media[i].Media + " {\n")
		for ; j < len(media) && media[j].Media == media[i].Media; j++ {
			b.WriteString("  " + media[j].CSS + "\n")
		}
		b.WriteString("}\n")
		i = j
	}
	return b.String()
}
