package provider

import (
	"context"
	"fmt"

	"github.com/pavelc4/mediaq-bot/internal/media"
)

// Set holds one instance of every strategy variant. Nil members are left out
// of the chains.
type Set struct {
	Extractor Strategy
	API       Strategy
	Proxy     Strategy
	Mirror    Strategy
	Browser   Strategy
	Social    Strategy
	Music     Strategy
}

var videoOrders = map[string][]string{
	NameExtractor: {NameExtractor, NameAPI, NameProxy, NameMirror, NameBrowser},
	NameAPI:       {NameAPI, NameExtractor, NameProxy, NameMirror, NameBrowser},
	NameProxy:     {NameProxy, NameExtractor, NameAPI, NameMirror, NameBrowser},
	NameMirror:    {NameMirror, NameExtractor, NameAPI, NameProxy, NameBrowser},
	NameBrowser:   {NameBrowser, NameExtractor, NameAPI, NameProxy, NameMirror},
}

func VideoOrders() []string {
	return []string{NameExtractor, NameAPI, NameProxy, NameMirror, NameBrowser}
}

// Table maps categories to executors.
type Table struct {
	chains map[media.Category]Executor
}

func NewTable(set Set, videoOrder string) (*Table, error) {
	order, ok := videoOrders[videoOrder]
	if !ok {
		return nil, fmt.Errorf("unknown video strategy order %q", videoOrder)
	}

	byName := map[string]Strategy{
		NameExtractor: set.Extractor,
		NameAPI:       set.API,
		NameProxy:     set.Proxy,
		NameMirror:    set.Mirror,
		NameBrowser:   set.Browser,
	}
	pick := func(names ...string) []Strategy {
		var out []Strategy
		for _, n := range names {
			if s := byName[n]; s != nil {
				out = append(out, s)
			}
		}
		return out
	}

	generic := NewChain(string(media.CategoryGeneric), pick(NameExtractor, NameProxy)...)

	t := &Table{chains: map[media.Category]Executor{
		media.CategoryVideo:   NewChain(string(media.CategoryVideo), pick(order...)...),
		media.CategoryGeneric: generic,
		media.CategorySocial:  generic,
		media.CategoryMusic:   generic,
	}}
	if set.Social != nil {
		t.chains[media.CategorySocial] = NewFallback(set.Social, generic)
	}
	if set.Music != nil {
		t.chains[media.CategoryMusic] = NewFallback(set.Music, generic)
	}
	return t, nil
}

func (t *Table) For(category media.Category) Executor {
	if e, ok := t.chains[category]; ok {
		return e
	}
	return t.chains[media.CategoryGeneric]
}

func (t *Table) Execute(ctx context.Context, job media.Job) (*media.StrategyResult, error) {
	return t.For(job.Category).Execute(ctx, job)
}
