package extract

import (
	"context"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonesrussell/liharvest/internal/logger"
	"github.com/jonesrussell/liharvest/internal/models"
	"github.com/jonesrussell/liharvest/internal/reconcile"
	"github.com/jonesrussell/liharvest/internal/session"
)

// APISource fetches posts from the authenticated REST surface. A nil or
// invalid session yields an empty slice, never an error.
type APISource interface {
	FetchPosts(ctx context.Context, sess *session.Session) []models.PostRecord
}

// Store persists reconciled records.
type Store interface {
	UpsertMany(ctx context.Context, records []models.PostRecord) (int, error)
}

// Relay forwards reconciled records to an external collector. Relay
// failures are logged and never interrupt a pass.
type Relay interface {
	SavePosts(ctx context.Context, records []models.PostRecord) error
}

// Runner drives full extraction passes: all three sources are consulted,
// their candidates reconciled, and the result persisted and relayed.
type Runner struct {
	api    APISource
	store  Store
	relay  Relay
	logger logger.Interface

	mu sync.Mutex
}

// NewRunner wires an extraction runner. The relay may be nil when no
// collector is configured.
func NewRunner(api APISource, store Store, relay Relay, log logger.Interface) *Runner {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Runner{
		api:    api,
		store:  store,
		relay:  relay,
		logger: log,
	}
}

// Run executes one extraction pass over the given page. Source failures are
// isolated: a pass with a dead session or an unparsable page still returns
// whatever the remaining sources produced. The returned slice is the
// reconciled, date-sorted result of this pass alone.
func (r *Runner) Run(ctx context.Context, sess *session.Session, doc *goquery.Document) []models.PostRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	var apiPosts []models.PostRecord
	if r.api != nil {
		apiPosts = r.api.FetchPosts(ctx, sess)
	}
	embeddedPosts := ExtractEmbedded(doc, now)
	domPosts := ExtractDOM(doc, now)

	r.logger.Debug("extraction sources collected",
		"api", len(apiPosts),
		"embedded", len(embeddedPosts),
		"dom", len(domPosts))

	records := reconcile.Reconcile(apiPosts, embeddedPosts, domPosts)

	if r.store != nil && len(records) > 0 {
		stored, err := r.store.UpsertMany(ctx, records)
		if err != nil {
			r.logger.Error("persisting extraction pass", "error", err)
		} else {
			r.logger.Info("extraction pass persisted", "records", stored)
		}
	}

	if r.relay != nil && len(records) > 0 {
		if err := r.relay.SavePosts(ctx, records); err != nil {
			r.logger.Warn("relaying extraction pass", "error", err)
		}
	}

	return records
}
