// Package session drives one viewer's load lifecycle: it runs the extraction,
// parsing and texture pipeline for the newest request, keeps the parsed assets
// so material toggles can be re-applied without reloading, and publishes every
// state change to subscribers.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"meshview/internal/archive"
	"meshview/internal/geometry"
	"meshview/internal/logging"
	"meshview/internal/material"
	"meshview/internal/mesh"
	"meshview/internal/metrics"
	"meshview/internal/mtl"
	"meshview/internal/texture"
)

// ErrClosed is returned in events produced after Close.
var ErrClosed = errors.New("session: closed")

const subscriberBuffer = 16

// Options configure a Controller.
type Options struct {
	Extractor      *archive.Extractor
	CanonicalSize  float64
	TextureWorkers int
	Mode           material.Mode
	Blend          material.BlendMode
	Metrics        *metrics.Collector
}

// assets is what a finished load leaves behind for recomposition.
type assets struct {
	geometry    *geometry.RawGeometry
	transform   mesh.Transform
	desc        *mtl.Description
	texture     *texture.Asset
	store       *texture.Store
	caps        Capabilities
	placeholder bool
	fallback    string
}

func (a *assets) release() {
	if a != nil && a.store != nil {
		a.store.Release()
	}
}

// Controller is safe for concurrent use. Only the newest request may commit.
type Controller struct {
	extractor *archive.Extractor
	size      float64
	workers   int
	metrics   *metrics.Collector

	token  atomic.Uint64
	root   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	mu       sync.Mutex
	current  Event
	mode     material.Mode
	blend    material.BlendMode
	loaded   *assets
	inflight context.CancelFunc
	subs     map[int]chan Event
	nextSub  int
}

// New creates an idle Controller.
func New(opts Options) *Controller {
	size := opts.CanonicalSize
	if size <= 0 {
		size = mesh.CanonicalSize
	}
	workers := opts.TextureWorkers
	if workers <= 0 {
		workers = 4
	}
	ext := opts.Extractor
	if ext == nil {
		ext = &archive.Extractor{Fetcher: archive.NewFetcher("", 30*time.Second), SortCandidates: true}
	}
	root, stop := context.WithCancel(context.Background())
	c := &Controller{
		extractor: ext,
		size:      size,
		workers:   workers,
		metrics:   opts.Metrics,
		root:      root,
		stop:      stop,
		mode:      opts.Mode,
		blend:     opts.Blend,
		subs:      make(map[int]chan Event),
	}
	c.current = Event{Kind: Idle, Mode: c.mode, Blend: c.blend}
	return c
}

// RequestLoad starts a load in the background and returns its token.
// The caller's ctx bounds the load; pass a long-lived context from handlers.
func (c *Controller) RequestLoad(ctx context.Context, src archive.Source) uint64 {
	token, reqID, lctx, cancel := c.begin(ctx, src)
	if token == 0 {
		cancel()
		return 0
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.run(lctx, token, reqID, src)
	}()
	return token
}

// Load runs a load synchronously and returns the event it produced. If a
// newer request started meanwhile, that event is discarded rather than
// committed; Snapshot reports what the session actually shows.
func (c *Controller) Load(ctx context.Context, src archive.Source) Event {
	token, reqID, lctx, cancel := c.begin(ctx, src)
	defer cancel()
	if token == 0 {
		return c.closedEvent(src)
	}
	return c.run(lctx, token, reqID, src)
}

// begin allocates a token, supersedes any in-flight load and publishes Loading.
func (c *Controller) begin(ctx context.Context, src archive.Source) (uint64, string, context.Context, context.CancelFunc) {
	lctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(c.root, cancel)
	cancelAll := func() {
		stopAfter()
		cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0, "", lctx, cancelAll
	}
	if c.inflight != nil {
		c.inflight()
	}
	c.inflight = cancel

	token := c.token.Add(1)
	reqID := uuid.NewString()
	logging.Info("load requested", "request", reqID, "token", token, "label", src.Label, "url", src.URL)
	c.publishLocked(Event{
		Kind:      Loading,
		Token:     token,
		RequestID: reqID,
		Label:     src.Label,
	})
	return token, reqID, lctx, cancelAll
}

func (c *Controller) run(ctx context.Context, token uint64, reqID string, src archive.Source) Event {
	start := time.Now()
	a, err := c.build(ctx, reqID, src)
	if err != nil {
		ev := Event{
			Kind:      Error,
			Token:     token,
			RequestID: reqID,
			Label:     src.Label,
			Cause:     causeOf(err),
			Err:       err,
			Retryable: true,
		}
		committed, ok := c.commit(token, ev, nil)
		if !ok {
			c.metrics.RecordLoad(metrics.ResultSuperseded, time.Since(start))
			return ev
		}
		logging.Error("load failed", "request", reqID, "cause", ev.Cause, "err", err)
		c.metrics.RecordLoad(metrics.ResultError, time.Since(start))
		return committed
	}

	ev := Event{
		Kind:         Loaded,
		Token:        token,
		RequestID:    reqID,
		Label:        src.Label,
		Capabilities: a.caps,
		Fallback:     a.fallback,
	}
	committed, ok := c.commit(token, ev, a)
	if !ok {
		a.release()
		c.metrics.RecordLoad(metrics.ResultSuperseded, time.Since(start))
		logging.Debug("discarded superseded load", "request", reqID, "token", token)
		return ev
	}

	result := metrics.ResultLoaded
	if a.placeholder {
		result = metrics.ResultPlaceholder
	}
	c.metrics.RecordLoad(result, time.Since(start))
	return committed
}

// build runs the pipeline. Only fetch and decompress failures are errors.
func (c *Controller) build(ctx context.Context, reqID string, src archive.Source) (*assets, error) {
	ext, err := c.extractor.Extract(ctx, src)
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveArchive(ext.Size)
	cls := ext.Classification

	cands := make([]geometry.Candidate, 0, len(cls.Geometry))
	for _, m := range ext.Members(cls.Geometry) {
		cands = append(cands, geometry.Candidate{Path: m.Path, Data: m.Data})
	}
	res := geometry.Parse(cands)

	var desc *mtl.Description
	if mats := ext.Members(cls.Material); len(mats) > 0 {
		var diags []mtl.Diagnostic
		desc, diags = mtl.Parse(mats[0].Data)
		for _, d := range diags {
			logging.Debug("material diagnostic", "path", mats[0].Path, "detail", d.String())
		}
		if len(mats) > 1 {
			logging.Debug("ignoring extra material libraries", "used", mats[0].Path, "count", len(mats))
		}
	}

	store := texture.NewStore()
	if err := store.LoadAll(ctx, ext.Members(cls.Texture), c.workers); err != nil {
		logging.Warn("texture decoding interrupted", "request", reqID, "err", err)
	}

	a := &assets{
		desc:  desc,
		store: store,
		caps: Capabilities{
			HasMaterial:  desc != nil,
			HasTexture:   store.Len() > 0,
			TextureCount: store.Len(),
		},
	}

	if res.Err != nil {
		a.placeholder = true
		a.fallback = causeOf(res.Err)
		c.metrics.RecordFallback(a.fallback)
		logging.Warn("showing placeholder", "request", reqID, "reason", a.fallback, "err", res.Err)
		return a, nil
	}

	a.geometry = res.Geometry
	a.transform = mesh.Normalize(a.geometry, c.size)
	a.texture = c.resolveTexture(reqID, cls.Texture, store, desc, res.Geometry)
	return a, nil
}

// resolveTexture picks the texture for the mesh: the material's diffuse map,
// else a reference embedded in the geometry, else the first candidate.
func (c *Controller) resolveTexture(reqID string, names []string, store *texture.Store, desc *mtl.Description, g *geometry.RawGeometry) *texture.Asset {
	if store.Len() == 0 {
		return nil
	}
	ref := ""
	switch {
	case desc.HasTexture():
		ref = desc.DiffuseMap
	case len(g.TextureRefs) > 0:
		ref = g.TextureRefs[0]
	}

	cache := texture.NewCache(texture.BuildIndex(names), store)
	asset, match := cache.Lookup(ref)
	c.metrics.RecordTextureMatch(match.Tier.String())
	if !match.Found() {
		logging.Info("texture reference unresolved", "request", reqID, "ref", ref)
		return nil
	}
	if !asset.Decoded() {
		logging.Warn("matched texture is not decodable", "request", reqID, "ref", ref, "name", match.Name)
		return nil
	}
	logging.Debug("texture resolved", "request", reqID, "ref", ref, "name", match.Name, "tier", match.Tier.String())
	return asset
}

// commit publishes ev if token is still the newest. The previous assets are
// released and a, which is nil for errors, takes their place.
func (c *Controller) commit(token uint64, ev Event, a *assets) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() || token != c.token.Load() {
		return Event{}, false
	}
	c.inflight = nil
	c.loaded.release()
	c.loaded = a
	if a != nil {
		ev.Mesh = c.renderable(ev.RequestID, a, c.mode, c.blend)
		c.metrics.SetTexturesHeld(a.store.Len())
	} else {
		c.metrics.SetTexturesHeld(0)
	}
	logging.Info("session state", "state", ev.Kind.String(), "request", ev.RequestID, "label", ev.Label)
	c.publishLocked(ev)
	return c.current, true
}

// renderable composes the material for a and wraps it with the cached geometry.
// Placeholders always carry the flat material.
func (c *Controller) renderable(id string, a *assets, mode material.Mode, blend material.BlendMode) *mesh.Renderable {
	if a.placeholder {
		return mesh.Placeholder(id, c.size)
	}
	return &mesh.Renderable{
		ID:        id,
		Geometry:  a.geometry,
		Material:  material.Compose(a.desc, a.texture, mode, blend),
		Transform: a.transform,
	}
}

// SetMaterialMode changes the material mode. A loaded mesh is recomposed in
// place; otherwise the mode waits for the next Loaded state.
func (c *Controller) SetMaterialMode(m material.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = m
	c.recomposeLocked("material mode")
}

// SetBlendMode changes the blend mode, with the same deferral as SetMaterialMode.
func (c *Controller) SetBlendMode(b material.BlendMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blend = b
	c.recomposeLocked("blend mode")
}

func (c *Controller) recomposeLocked(what string) {
	if c.current.Kind != Loaded || c.loaded == nil || c.closed.Load() {
		logging.Debug("deferring mode change", "change", what, "state", c.current.Kind.String())
		c.current.Mode, c.current.Blend = c.mode, c.blend
		return
	}
	ev := c.current
	ev.Mesh = c.renderable(ev.RequestID, c.loaded, c.mode, c.blend)
	logging.Info("material recomposed", "change", what, "mode", c.mode.String(), "blend", c.blend.String(), "kind", ev.Mesh.Material.Kind.String())
	c.publishLocked(ev)
}

// Snapshot returns the most recent committed event.
func (c *Controller) Snapshot() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.Snapshot().Kind
}

// Subscribe returns a channel of future events and a cancel function. The
// channel is buffered; a slow reader loses the oldest events, never the newest.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()
	c.metrics.SubscriberAdded()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
				c.metrics.SubscriberRemoved()
			}
		})
	}
}

func (c *Controller) publishLocked(ev Event) {
	ev.Mode, ev.Blend = c.mode, c.blend
	c.current = ev
	for _, ch := range c.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close cancels in-flight loads, waits for them, releases textures and
// closes every subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed.Swap(true) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.stop()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded.release()
	c.loaded = nil
	c.metrics.SetTexturesHeld(0)
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
		c.metrics.SubscriberRemoved()
	}
	logging.Info("session closed")
}

func (c *Controller) closedEvent(src archive.Source) Event {
	return Event{Kind: Error, Label: src.Label, Cause: CauseClosed, Err: ErrClosed}
}

func causeOf(err error) string {
	switch {
	case errors.Is(err, archive.ErrFetch):
		return CauseFetch
	case errors.Is(err, archive.ErrDecompress):
		return CauseDecompress
	case errors.Is(err, geometry.ErrNoGeometry):
		return CauseNoGeometry
	case errors.Is(err, geometry.ErrFormatNotImplemented):
		return CauseFormat
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CauseFetch
	default:
		return CauseParseIncomplete
	}
}
