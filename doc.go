// Package friendly is an interactive sphere-gallery engine for [Ebitengine].
//
// Friendly renders a sphere-shaped field of discrete surface cells, each
// animated by its own spring-damper state machine and textured with a
// sub-rectangle of a shared streaming media source. Media sources are
// preloaded, retried, and hot-swapped by a resource pool without stalling
// the frame loop.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	engine := friendly.NewEngine(friendly.DefaultConfig(), mediaIDs, resolver)
//	friendly.Run(engine, friendly.RunConfig{
//		Title: "Gallery", Width: 1280, Height: 720,
//	})
//
// For full control, implement [ebiten.Game] yourself and delegate to
// [Engine.Update], [Engine.Draw], and [Engine.Layout].
//
// # Interaction
//
// Hovering the pointer over the sphere lifts and flips nearby cells with a
// distance falloff; fast pointer motion triggers an explode burst. Holding
// the primary button and dragging rotates the whole sphere. A click swaps
// the active media source, and a scroll gesture over the surface fires
// [Engine.OnAdvance] for the embedding page to consume.
//
// # Media
//
// Sources are identified by opaque strings and resolved to loadable
// addresses by a caller-supplied [Resolver]. Stills (PNG, JPEG, WebP, BMP)
// decode to single-frame resources; animated GIFs decode to multi-frame
// resources with per-frame timing and play while active. Loads are
// concurrent and bounded, with linear-backoff retries for transient errors
// and a permanent blacklist for decode failures. When every source has
// failed the engine falls back to a softly pulsing untextured sphere and
// keeps animating.
//
// [Ebitengine]: https://ebitengine.org
package friendly
