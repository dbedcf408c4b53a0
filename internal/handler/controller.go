// Package handler owns all per-user session state: the mode machine, the
// dispatch of free text to the generation backends, and the delivery of
// results. Shared state is only touched from the controller's event loop;
// everything involving the network runs in spawned goroutines that post
// their completions back onto the loop.
package handler

import (
	"context"
	"log/slog"

	"github.com/yono-dev/craftmind/internal/config"
	"github.com/yono-dev/craftmind/internal/domain"
	"github.com/yono-dev/craftmind/internal/service"
)

type Controller struct {
	cfg       *config.Config
	history   *service.ConversationStore
	cooldown  *service.CooldownLimiter
	generator Generator
	fetcher   Fetcher
	uploader  Uploader
	library   Library
	audit     Audit
	presenter Presenter

	// sessions is owned by the Run goroutine.
	sessions map[int64]*domain.Session
	events   chan func()
	done     chan struct{}
}

// Deps contains all dependencies required to construct a Controller.
type Deps struct {
	Cfg       *config.Config
	History   *service.ConversationStore
	Cooldown  *service.CooldownLimiter
	Generator Generator
	Fetcher   Fetcher
	Uploader  Uploader
	Library   Library
	Audit     Audit
	Presenter Presenter
}

func New(deps Deps) *Controller {
	return &Controller{
		cfg:       deps.Cfg,
		history:   deps.History,
		cooldown:  deps.Cooldown,
		generator: deps.Generator,
		fetcher:   deps.Fetcher,
		uploader:  deps.Uploader,
		library:   deps.Library,
		audit:     deps.Audit,
		presenter: deps.Presenter,
		sessions:  make(map[int64]*domain.Session),
		events:    make(chan func(), 64),
		done:      make(chan struct{}),
	}
}

// Run consumes the event queue until ctx is cancelled. All session
// mutation happens here.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.events:
			fn()
		}
	}
}

// post enqueues a closure for the loop; after shutdown posts are dropped.
func (c *Controller) post(fn func()) {
	select {
	case c.events <- fn:
	case <-c.done:
	}
}

// spawn runs network work off the loop. The completion is posted back and
// must re-check session state before mutating anything.
func (c *Controller) spawn(fn func()) {
	go fn()
}

// StartSession opens (or reopens) the user's session at the main menu.
func (c *Controller) StartSession(userID int64) {
	c.post(func() {
		sess, ok := c.sessions[userID]
		if !ok {
			sess = &domain.Session{
				UserID:      userID,
				Model:       c.cfg.DefaultModel,
				ImageModel:  c.cfg.DefaultImageModel,
				AspectRatio: c.cfg.DefaultAspectRatio,
				Resolution:  c.cfg.DefaultResolution,
			}
			c.sessions[userID] = sess
			c.spawn(func() {
				ctx, cancel := context.WithTimeout(context.Background(), config.WebhookTimeout)
				defer cancel()
				c.library.LoadUser(ctx, userID)
			})
			slog.Info("session opened", "user_id", userID)
		}
		sess.Mode = domain.ModeMainMenu
		c.presenter.Send(userID, welcomeText+"\n\n"+menuText)
	})
}

// EndSession flushes the user's library and destroys the session.
func (c *Controller) EndSession(userID int64) {
	c.post(func() {
		c.endSession(userID)
	})
}

// endSession runs on the loop goroutine.
func (c *Controller) endSession(userID int64) {
	if _, ok := c.sessions[userID]; !ok {
		return
	}
	delete(c.sessions, userID)
	c.history.Clear(userID)
	c.cooldown.Forget(userID)
	c.spawn(func() {
		ctx, cancel := context.WithTimeout(context.Background(), config.WebhookTimeout)
		defer cancel()
		c.library.UnloadUser(ctx, userID)
	})
	slog.Info("session closed", "user_id", userID)
	c.presenter.Send(userID, goodbyeText)
}

// Dispatch routes one free-text payload according to the user's mode.
func (c *Controller) Dispatch(userID int64, text string) {
	c.post(func() {
		c.dispatch(userID, text)
	})
}

// session returns the user's session if one is open. Only valid on the
// loop goroutine.
func (c *Controller) session(userID int64) (*domain.Session, bool) {
	sess, ok := c.sessions[userID]
	return sess, ok
}
