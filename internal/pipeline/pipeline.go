// Package pipeline implements C6, the Ingress Pipeline: the single
// process(topic, payload) entry point that threads a raw MQTT message
// through the filter, expansion, whitelist, and canonicalization stages in
// the exact order spec §4.6 requires. Grounded on the original's
// MiniserverDataProcessor.process_data, generalized into a component that
// takes its dependencies (filter sources, cache size, logger) as constructor
// arguments rather than reaching for module-level state (spec §9).
package pipeline

import (
	"fmt"

	"github.com/user/loxrelay"
	"github.com/user/loxrelay/internal/cache"
	"github.com/user/loxrelay/internal/canonical"
	"github.com/user/loxrelay/internal/config"
	"github.com/user/loxrelay/internal/expand"
	"github.com/user/loxrelay/internal/filter"
	"github.com/user/loxrelay/internal/metrics"
	"github.com/user/loxrelay/internal/normalize"
)

// Pipeline is C6. It is rebuilt (or has its filters swapped) whenever the
// configuration Store produces a new Snapshot with different filter
// sources; normal message processing only reads from it.
type Pipeline struct {
	log loxrelay.Logger

	subscriptionFilters *filter.Matcher
	doNotForward        *filter.Matcher

	normalizeCache    *cache.Cache[string, string]
	canonicalizeCache *cache.Cache[string, string]
	whitelistCache    *cache.Cache[string, bool]
}

// New builds a Pipeline from the subscription-filter and do-not-forward
// regex sources, with per-gate memoization caches sized to cacheSize
// (spec §4.5). Passing cacheSize <= 0 still yields a usable, size-1 cache.
func New(subscriptionFilters, doNotForward []string, cacheSize int, log loxrelay.Logger) *Pipeline {
	return &Pipeline{
		log:                 log,
		subscriptionFilters: filter.Compile(subscriptionFilters, log),
		doNotForward:        filter.Compile(doNotForward, log),
		normalizeCache:      cache.New[string, string](cacheSize),
		canonicalizeCache:   cache.New[string, string](cacheSize),
		whitelistCache:      cache.New[string, bool](cacheSize),
	}
}

// EchoFunc publishes a debug echo pair; failures must never interrupt the
// pipeline (spec §4.6 step 3), so it has no error return.
type EchoFunc func(topic, value string)

// Process runs C6 over one (topic, payload) message against snap, the
// Snapshot captured once at the start of processing (spec §5). echo, if
// non-nil, is called once per expanded pair when publish_processed_topics
// is enabled; the caller decides whether that's actually true by only
// passing a non-nil echo function when it is.
func (p *Pipeline) Process(topic string, payload []byte, snap *config.Snapshot, echo EchoFunc) []loxrelay.Pair {
	metrics.MessagesIngested.WithLabelValues("mqtt").Inc()

	// 1. First filter pass: whole-topic-family rejection before any JSON work.
	if p.subscriptionFilters.Matches(topic) {
		metrics.PairsDropped.WithLabelValues("subscription_filter").Inc()
		return nil
	}

	// 2. Expansion.
	expanded := expand.Expand(topic, payload, snap.Processing.ExpandJSON)

	// 3. Optional debug echo, in yield order, before the final gate.
	if echo != nil {
		for _, pair := range expanded {
			echo(pair.Topic, pair.Value)
		}
	}

	// 4. Per-pair final gate, in the exact order: whitelist, subscription
	// (second pass), do-not-forward.
	out := make([]loxrelay.Pair, 0, len(expanded))
	for _, pair := range expanded {
		norm := p.normalize(pair.Topic)

		if len(snap.Whitelist) > 0 && !p.whitelisted(norm, snap) {
			metrics.PairsDropped.WithLabelValues("whitelist").Inc()
			continue
		}
		if p.subscriptionFilters.Matches(pair.Topic) {
			metrics.PairsDropped.WithLabelValues("subscription_filter").Inc()
			continue
		}
		if p.doNotForward.Matches(pair.Topic) {
			metrics.PairsDropped.WithLabelValues("do_not_forward").Inc()
			continue
		}
		out = append(out, loxrelay.Pair{Topic: pair.Topic, Value: p.canonicalize(pair.Value)})
	}
	return out
}

func (p *Pipeline) whitelisted(norm string, snap *config.Snapshot) bool {
	return p.whitelistCache.GetOrCompute(norm, func() bool {
		_, ok := snap.Whitelist[norm]
		return ok
	})
}

func (p *Pipeline) normalize(topic string) string {
	return p.normalizeCache.GetOrCompute(topic, func() string { return normalize.Topic(topic) })
}

func (p *Pipeline) canonicalize(value string) string {
	return p.canonicalizeCache.GetOrCompute(value, func() string { return canonical.Canonicalize(value) })
}

// ClearCaches purges all three memoization caches. Call whenever the
// whitelist set is replaced.
func (p *Pipeline) ClearCaches() {
	p.normalizeCache.Clear()
	p.canonicalizeCache.Clear()
	p.whitelistCache.Clear()
}

// Recompile rebuilds the subscription-filter and do-not-forward matchers
// from new sources, called when the configuration Store installs a
// Snapshot whose Topics differ from the one the Pipeline was built with.
func (p *Pipeline) Recompile(subscriptionFilters, doNotForward []string) {
	p.subscriptionFilters = filter.Compile(subscriptionFilters, p.log)
	p.doNotForward = filter.Compile(doNotForward, p.log)
}

// String is a diagnostic summary, useful in logs.
func (p *Pipeline) String() string {
	return fmt.Sprintf("pipeline{subscription_filters=%d do_not_forward=%d}",
		len(p.subscriptionFilters.Sources()), len(p.doNotForward.Sources()))
}
