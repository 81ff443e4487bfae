package config

import (
	"fmt"
)

// ListMode selects how a list/set-typed field update combines with the
// current value, matching spec §4.10's set/add/remove control-plane verbs.
type ListMode string

const (
	ModeSet    ListMode = "set"
	ModeAdd    ListMode = "add"
	ModeRemove ListMode = "remove"
)

// setter applies one field's update to f in place.
type setter func(f *File, value interface{}, mode ListMode) error

// fieldSetters is the generated mapping from field identifier to a typed
// setter, replacing the Python original's dynamic-attribute mutation by
// field name (spec §9's "dynamic-attribute config mutation" redesign note).
// Unknown names are a recoverable error, never a panic.
var fieldSetters = map[string]setter{
	"log_level":  stringSetter(func(f *File) *string { return &f.General.LogLevel }),
	"base_topic": stringSetter(func(f *File) *string { return &f.General.BaseTopic }),
	"cache_size": intSetter(func(f *File) *int { return &f.General.CacheSize }),

	"broker_host":      stringSetter(func(f *File) *string { return &f.Broker.Host }),
	"broker_port":      intSetter(func(f *File) *int { return &f.Broker.Port }),
	"broker_user":      stringSetter(func(f *File) *string { return &f.Broker.User }),
	"broker_password":  stringSetter(func(f *File) *string { return &f.Broker.Password }),
	"broker_client_id": stringSetter(func(f *File) *string { return &f.Broker.ClientID }),

	"miniserver_host":                     stringSetter(func(f *File) *string { return &f.Miniserver.Host }),
	"miniserver_port":                     intSetter(func(f *File) *int { return &f.Miniserver.Port }),
	"miniserver_user":                     stringSetter(func(f *File) *string { return &f.Miniserver.User }),
	"miniserver_password":                 stringSetter(func(f *File) *string { return &f.Miniserver.Password }),
	"miniserver_max_parallel_connections": intSetter(func(f *File) *int { return &f.Miniserver.MaxParallelConnections }),
	"miniserver_use_websocket":            boolSetter(func(f *File) *bool { return &f.Miniserver.UseWebsocket }),
	"miniserver_mock_host":                stringSetter(func(f *File) *string { return &f.Miniserver.MockHost }),
	"miniserver_enable_mock":              boolSetter(func(f *File) *bool { return &f.Miniserver.EnableMock }),
	"miniserver_sync_with_miniserver":     boolSetter(func(f *File) *bool { return &f.Miniserver.SyncWithMiniserver }),
	"miniserver_resync_cron":              stringSetter(func(f *File) *string { return &f.Miniserver.ResyncCron }),

	"subscriptions":        listSetter(func(f *File) *[]string { return &f.Topics.Subscriptions }),
	"subscription_filters": listSetter(func(f *File) *[]string { return &f.Topics.SubscriptionFilters }),
	"topic_whitelist":      listSetter(func(f *File) *[]string { return &f.Topics.TopicWhitelist }),
	"do_not_forward":       listSetter(func(f *File) *[]string { return &f.Topics.DoNotForward }),

	"expand_json": boolSetter(func(f *File) *bool { return &f.Processing.ExpandJSON }),

	"udp_port": intSetter(func(f *File) *int { return &f.UDP.Port }),

	"publish_processed_topics": boolSetter(func(f *File) *bool { return &f.Debug.PublishProcessedTopics }),
	"publish_forwarded_topics": boolSetter(func(f *File) *bool { return &f.Debug.PublishForwardedTopics }),
}

// ApplyUpdates applies updates to a clone of base and returns the result.
// base is never mutated. Each key in updates must name a known field;
// an unknown field name aborts the whole update (spec §7: "invalid JSON on
// config/* is logged, no restart performed" — the caller decides whether
// a returned error here counts as that case).
func ApplyUpdates(base File, updates map[string]interface{}, mode ListMode) (File, error) {
	out := base
	for name, value := range updates {
		set, ok := fieldSetters[name]
		if !ok {
			return base, fmt.Errorf("config: unknown field %q", name)
		}
		if err := set(&out, value, mode); err != nil {
			return base, fmt.Errorf("config: field %q: %w", name, err)
		}
	}
	return out, nil
}

func stringSetter(get func(*File) *string) setter {
	return func(f *File, value interface{}, _ ListMode) error {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		*get(f) = s
		return nil
	}
}

func intSetter(get func(*File) *int) setter {
	return func(f *File, value interface{}, _ ListMode) error {
		switch v := value.(type) {
		case float64:
			*get(f) = int(v)
		case int:
			*get(f) = v
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
		return nil
	}
}

func boolSetter(get func(*File) *bool) setter {
	return func(f *File, value interface{}, _ ListMode) error {
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		*get(f) = b
		return nil
	}
}

// listSetter implements set/add/remove for []string-typed fields
// (spec §4.10: "add unions lists/sets, remove subtracts"). Order is
// preserved for "set" and "add"; duplicates are not introduced by "add".
func listSetter(get func(*File) *[]string) setter {
	return func(f *File, value interface{}, mode ListMode) error {
		items, err := toStringSlice(value)
		if err != nil {
			return err
		}
		cur := *get(f)
		switch mode {
		case ModeAdd:
			existing := make(map[string]struct{}, len(cur))
			for _, v := range cur {
				existing[v] = struct{}{}
			}
			next := append([]string{}, cur...)
			for _, v := range items {
				if _, ok := existing[v]; !ok {
					next = append(next, v)
					existing[v] = struct{}{}
				}
			}
			*get(f) = next
		case ModeRemove:
			drop := make(map[string]struct{}, len(items))
			for _, v := range items {
				drop[v] = struct{}{}
			}
			next := make([]string, 0, len(cur))
			for _, v := range cur {
				if _, ok := drop[v]; !ok {
					next = append(next, v)
				}
			}
			*get(f) = next
		case ModeSet, "":
			*get(f) = items
		default:
			return fmt.Errorf("unknown list mode %q", mode)
		}
		return nil
	}
}

func toStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string list element, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("expected list or string, got %T", value)
	}
}
