// Package control implements C10, the Control-Plane Router: recognizing
// the fixed set of reserved subtopics under base_topic and dispatching
// them to configuration mutation, whitelist resync, UI supervision, or a
// process restart, before a message ever reaches C6. Grounded on the
// original's TOPIC namespace and MQTTRelay.received_mqtt_message match/case
// in main.py.
package control

// Topics is the set of reserved, base_topic-relative subtopic names C10
// inspects before handing a message to the ingress pipeline.
type Topics struct {
	ConfigGet         string
	ConfigResponse    string
	ConfigSet         string
	ConfigAdd         string
	ConfigRemove      string
	ConfigUpdate      string
	ConfigRestart     string
	MiniserverStartup string
	StartUI           string
	StopUI            string
	UIStatus          string
}

// NewTopics derives the reserved topic set from baseTopic, which is
// expected to already end in "/" (config.Load normalizes this).
func NewTopics(baseTopic string) Topics {
	return Topics{
		ConfigGet:         baseTopic + "config/get",
		ConfigResponse:    baseTopic + "config/response",
		ConfigSet:         baseTopic + "config/set",
		ConfigAdd:         baseTopic + "config/add",
		ConfigRemove:      baseTopic + "config/remove",
		ConfigUpdate:      baseTopic + "config/update",
		ConfigRestart:     baseTopic + "config/restart",
		MiniserverStartup: baseTopic + "miniserverevent/startup",
		StartUI:           baseTopic + "startui",
		StopUI:            baseTopic + "stopui",
		UIStatus:          baseTopic + "ui/status",
	}
}

// Subscriptions returns every reserved topic the broker client must
// subscribe to in addition to topics.subscriptions (spec §4.10: "Before C6
// sees a message, inspect the topic against a fixed set of reserved
// names").
func (t Topics) Subscriptions() []string {
	return []string{
		t.ConfigGet, t.ConfigSet, t.ConfigAdd, t.ConfigRemove,
		t.ConfigUpdate, t.ConfigRestart, t.MiniserverStartup,
		t.StartUI, t.StopUI,
	}
}
