package control

import (
	"encoding/json"
	"fmt"

	"github.com/user/loxrelay"
	"github.com/user/loxrelay/internal/config"
)

// Router recognizes C10's reserved subtopics and dispatches them. Anything
// that doesn't match is left for the caller to route into C6.
type Router struct {
	topics    Topics
	store     *config.Store
	pub       loxrelay.Publisher
	log       loxrelay.Logger
	sync      func()
	restart   func()
	startUI   func()
	stopUI    func()
}

// New builds a Router. sync is invoked for a miniserver-startup event when
// sync_with_miniserver is enabled; restart tears down and re-execs the
// process; startUI/stopUI supervise the external UI process.
func New(topics Topics, store *config.Store, pub loxrelay.Publisher, log loxrelay.Logger, sync, restart, startUI, stopUI func()) *Router {
	return &Router{
		topics:  topics,
		store:   store,
		pub:     pub,
		log:     log,
		sync:    sync,
		restart: restart,
		startUI: startUI,
		stopUI:  stopUI,
	}
}

// Route inspects topic and, if it names a reserved subtopic, handles it
// and returns true. A false return means the caller must pass (topic,
// payload) on to C6.
func (r *Router) Route(topic string, payload []byte) bool {
	switch topic {
	case r.topics.ConfigGet:
		r.handleConfigGet()
	case r.topics.ConfigSet:
		r.handleConfigMutation(payload, config.ModeSet)
	case r.topics.ConfigAdd:
		r.handleConfigMutation(payload, config.ModeAdd)
	case r.topics.ConfigRemove:
		r.handleConfigMutation(payload, config.ModeRemove)
	case r.topics.ConfigUpdate, r.topics.ConfigRestart:
		r.handlePersistAndRestart()
	case r.topics.MiniserverStartup:
		r.handleMiniserverStartup()
	case r.topics.StartUI:
		if r.startUI != nil {
			r.startUI()
		}
	case r.topics.StopUI:
		if r.stopUI != nil {
			r.stopUI()
		}
	default:
		return false
	}
	return true
}

func (r *Router) handleConfigGet() {
	redacted := config.Redacted(r.store.Current().File)
	body, err := json.Marshal(redacted)
	if err != nil {
		r.logError("marshal redacted config", err)
		return
	}
	if err := r.pub.Publish(r.topics.ConfigResponse, string(body), false); err != nil {
		r.logError("publish config/response", err)
	}
}

func (r *Router) handleConfigMutation(payload []byte, mode config.ListMode) {
	var updates map[string]interface{}
	if err := json.Unmarshal(payload, &updates); err != nil {
		r.logError(fmt.Sprintf("invalid JSON on config/%s", mode), err)
		return
	}
	next, err := config.ApplyUpdates(r.store.Current().File, updates, mode)
	if err != nil {
		r.logError(fmt.Sprintf("apply config/%s", mode), err)
		return
	}
	if err := r.store.Replace(next); err != nil {
		r.logError("persist updated config", err)
		return
	}
	if r.log != nil {
		r.log.Info("control: configuration updated, restarting", "mode", string(mode))
	}
	if r.restart != nil {
		r.restart()
	}
}

func (r *Router) handlePersistAndRestart() {
	if err := r.store.Replace(r.store.Current().File); err != nil {
		r.logError("persist config before restart", err)
		return
	}
	if r.log != nil {
		r.log.Info("control: reloading configuration, restarting")
	}
	if r.restart != nil {
		r.restart()
	}
}

func (r *Router) handleMiniserverStartup() {
	if !r.store.Current().Miniserver.SyncWithMiniserver {
		return
	}
	if r.log != nil {
		r.log.Info("control: miniserver startup detected, resyncing whitelist")
	}
	if r.sync != nil {
		r.sync()
	}
}

func (r *Router) logError(context string, err error) {
	if r.log != nil {
		r.log.Error("control: "+context, "error", err)
	}
}
