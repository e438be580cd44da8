// Package dedupe decides whether a freshly harvested posting is already stored.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"jobscout-engine/internal/domain"
)

const (
	DefaultThreshold   = 0.85
	DefaultTitlePrefix = 10
)

// Lookup is the slice of the record store the detector needs.
type Lookup interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (domain.Posting, bool, error)
	// FindSimilar returns stored postings of organization whose lowercased
	// title starts with titlePrefix.
	FindSimilar(ctx context.Context, titlePrefix, organization string) ([]domain.Posting, error)
}

// Fingerprint hashes the lowercased title, description and organization.
func Fingerprint(title, description, organization string) string {
	h := sha256.Sum256([]byte(strings.ToLower(title + description + organization)))
	return hex.EncodeToString(h[:])
}

type Detector struct {
	threshold   float64
	titlePrefix int
}

type Option func(*Detector)

func WithThreshold(t float64) Option {
	return func(d *Detector) {
		if t > 0 {
			d.threshold = t
		}
	}
}

func WithTitlePrefix(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.titlePrefix = n
		}
	}
}

func New(opts ...Option) *Detector {
	d := &Detector{threshold: DefaultThreshold, titlePrefix: DefaultTitlePrefix}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// IsDuplicate runs the exact fingerprint check and, on a miss, the fuzzy
// same-organization check.
func (d *Detector) IsDuplicate(ctx context.Context, p domain.Posting, store Lookup) (bool, error) {
	fp := p.Fingerprint
	if fp == "" {
		fp = Fingerprint(p.Title, p.Description, p.Organization)
	}

	if _, ok, err := store.FindByFingerprint(ctx, fp); err != nil {
		return false, fmt.Errorf("find by fingerprint: %w", err)
	} else if ok {
		return true, nil
	}

	similar, err := store.FindSimilar(ctx, d.TitlePrefix(p.Title), p.Organization)
	if err != nil {
		return false, fmt.Errorf("find similar: %w", err)
	}
	for _, s := range similar {
		if Similarity(p.Description, s.Description) > d.threshold {
			return true, nil
		}
	}
	return false, nil
}

// TitlePrefix is the lowercased first n runes of title used for fuzzy lookups.
func (d *Detector) TitlePrefix(title string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(title)))
	if len(r) > d.titlePrefix {
		r = r[:d.titlePrefix]
	}
	return string(r)
}

// Similarity is 1 - editDistance/maxLen over the lowercased inputs; two empty
// strings are identical.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// Batch remembers the postings kept from one page so a page repeating a
// notice, verbatim or lightly edited, yields it once. The fuzzy rule is the
// same as the store check: same organization, same title prefix, similar
// description.
type Batch struct {
	d     *Detector
	exact map[string]bool
	kept  []domain.Posting
}

func (d *Detector) NewBatch() *Batch {
	return &Batch{d: d, exact: make(map[string]bool)}
}

// Contains reports whether p repeats a posting already added to the batch.
func (b *Batch) Contains(p domain.Posting) bool {
	if b.exact[p.Fingerprint] {
		return true
	}
	prefix := b.d.TitlePrefix(p.Title)
	for _, k := range b.kept {
		if !strings.EqualFold(strings.TrimSpace(k.Organization), strings.TrimSpace(p.Organization)) {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(k.Title)), prefix) {
			continue
		}
		if Similarity(p.Description, k.Description) > b.d.threshold {
			return true
		}
	}
	return false
}

func (b *Batch) Add(p domain.Posting) {
	b.exact[p.Fingerprint] = true
	b.kept = append(b.kept, p)
}
