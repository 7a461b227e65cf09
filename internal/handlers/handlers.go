package handlers

import (
	"time"

	"gen-gallery/internal/bloburl"
	"gen-gallery/internal/breaker"
	"gen-gallery/internal/gallery"
	"gen-gallery/internal/generate"
	"gen-gallery/internal/store"
)

type Handlers struct {
	store    *store.Store
	orch     *generate.Orchestrator
	gallery  *gallery.Service
	blobs    *bloburl.Cache
	breakers *breaker.Registry
	started  time.Time
}

func New(st *store.Store, orch *generate.Orchestrator, gal *gallery.Service, blobs *bloburl.Cache, breakers *breaker.Registry) *Handlers {
	return &Handlers{
		store:    st,
		orch:     orch,
		gallery:  gal,
		blobs:    blobs,
		breakers: breakers,
		started:  time.Now(),
	}
}
