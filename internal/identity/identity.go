// Package identity maps commit signatures to stable contributor keys,
// merging the aliases one person leaves across a history.
package identity

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gitsleuth/gitsleuth/pkg/gitobj"
)

// Key is a stable contributor key: the normalized lowercase email, falling
// back to the normalized name when the email is empty. Merged identities
// share the canonical key of their first-seen member.
type Key string

// Unmatched keys signatures carrying neither a name nor an email.
const Unmatched Key = "<unmatched>"

// Resolver assigns contributor keys to signatures. Loose matching merges
// identities that share an email or a name; exact mode keys on the full
// "name <email>" signature instead. Not safe for concurrent use; the walk
// observes signatures from a single goroutine.
type Resolver struct {
	exact   bool
	aliases map[Key]Key
	display map[Key]string
}

// NewResolver creates a Resolver with loose matching.
func NewResolver() *Resolver {
	return &Resolver{
		aliases: make(map[Key]Key),
		display: make(map[Key]string),
	}
}

// NewExactResolver creates a Resolver keying on exact signatures. Aliases
// never merge; one person with two emails counts as two contributors.
func NewExactResolver() *Resolver {
	r := NewResolver()
	r.exact = true

	return r
}

// Observe registers a signature and returns its canonical key. The first
// observation of an identity fixes its display name.
func (r *Resolver) Observe(sig gitobj.Signature) Key {
	email := normalize(sig.Email)
	name := normalize(sig.Name)

	if email == "" && name == "" {
		return Unmatched
	}

	if r.exact {
		key := Key(fmt.Sprintf("%s <%s>", name, email))
		r.rememberDisplay(key, sig)

		return key
	}

	return r.observeLoose(email, name, sig)
}

func (r *Resolver) observeLoose(email, name string, sig gitobj.Signature) Key {
	emailKey, nameKey := Key(email), Key(name)

	if canonical, ok := r.aliases[emailKey]; email != "" && ok {
		r.link(nameKey, canonical)

		return canonical
	}

	if canonical, ok := r.aliases[nameKey]; name != "" && ok {
		r.link(emailKey, canonical)

		return canonical
	}

	canonical := emailKey
	if email == "" {
		canonical = nameKey
	}

	r.link(emailKey, canonical)
	r.link(nameKey, canonical)
	r.rememberDisplay(canonical, sig)

	return canonical
}

// Resolve returns the canonical key for a signature without registering new
// aliases. Unseen signatures fall back to their natural key.
func (r *Resolver) Resolve(sig gitobj.Signature) Key {
	email := normalize(sig.Email)
	name := normalize(sig.Name)

	if email == "" && name == "" {
		return Unmatched
	}

	if r.exact {
		return Key(fmt.Sprintf("%s <%s>", name, email))
	}

	if canonical, ok := r.aliases[Key(email)]; email != "" && ok {
		return canonical
	}

	if canonical, ok := r.aliases[Key(name)]; name != "" && ok {
		return canonical
	}

	if email != "" {
		return Key(email)
	}

	return Key(name)
}

// DisplayName returns the preferred human-readable name for a key, or the
// key itself when none was recorded.
func (r *Resolver) DisplayName(key Key) string {
	if name, ok := r.display[key]; ok && name != "" {
		return name
	}

	return string(key)
}

// Count returns the number of distinct canonical identities known.
func (r *Resolver) Count() int {
	seen := make(map[Key]struct{}, len(r.display))
	for _, canonical := range r.aliases {
		seen[canonical] = struct{}{}
	}

	if r.exact {
		return len(r.display)
	}

	return len(seen)
}

// LoadPeopleFile merges identities from a dictionary file. Each line lists
// one person's aliases separated by "|"; the first token becomes the display
// name and every token maps to the same canonical key:
//
//	Linus Torvalds|torvalds@linux-foundation.org|torvalds@osdl.org
func (r *Resolver) LoadPeopleFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("people dict: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		tokens := strings.Split(line, "|")
		canonical := Key(normalize(tokens[0]))

		r.display[canonical] = strings.TrimSpace(tokens[0])

		for _, token := range tokens {
			if normalized := normalize(token); normalized != "" {
				r.link(Key(normalized), canonical)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("people dict: %w", err)
	}

	return nil
}

func (r *Resolver) link(alias, canonical Key) {
	if alias == "" {
		return
	}

	if _, ok := r.aliases[alias]; !ok {
		r.aliases[alias] = canonical
	}
}

func (r *Resolver) rememberDisplay(key Key, sig gitobj.Signature) {
	if _, ok := r.display[key]; ok {
		return
	}

	name := strings.TrimSpace(sig.Name)
	if name == "" {
		name = strings.TrimSpace(sig.Email)
	}

	r.display[key] = name
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
